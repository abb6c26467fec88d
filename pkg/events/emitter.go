package events

import "sync"

// Handler receives an event. Returning true stops propagation and, for
// cancelable events, cancels the event.
type Handler func(*Event) bool

// Hooks are per-visit priority listeners keyed by event type.
type Hooks map[Name]Handler

type listener struct {
	id   uint64
	fn   Handler
	once bool
}

// Emitter dispatches events to listeners. It is safe for concurrent use;
// listeners run on the emitting goroutine and may register or remove
// listeners while being called.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	byName   map[Name][]listener
	wildcard []listener
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{byName: make(map[Name][]listener)}
}

// On registers fn for events of the given type and returns a function that
// removes it.
func (em *Emitter) On(name Name, fn Handler) func() {
	return em.add(name, fn, false)
}

// Once registers fn to run for the next event of the given type only.
func (em *Emitter) Once(name Name, fn Handler) func() {
	return em.add(name, fn, true)
}

// OnAny registers fn for every event, after the type-specific listeners.
func (em *Emitter) OnAny(fn Handler) func() {
	em.mu.Lock()
	em.nextID++
	id := em.nextID
	em.wildcard = append(em.wildcard, listener{id: id, fn: fn})
	em.mu.Unlock()

	return func() {
		em.mu.Lock()
		em.wildcard = without(em.wildcard, id)
		em.mu.Unlock()
	}
}

func (em *Emitter) add(name Name, fn Handler, once bool) func() {
	em.mu.Lock()
	em.nextID++
	id := em.nextID
	em.byName[name] = append(em.byName[name], listener{id: id, fn: fn, once: once})
	em.mu.Unlock()

	return func() { em.remove(name, id) }
}

func (em *Emitter) remove(name Name, id uint64) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.byName[name] = without(em.byName[name], id)
	if len(em.byName[name]) == 0 {
		delete(em.byName, name)
	}
}

func without(ls []listener, id uint64) []listener {
	out := ls[:0:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}

// Count returns the number of listeners registered for name.
func (em *Emitter) Count(name Name) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.byName[name])
}

// Emit dispatches e: the priority handler first, then listeners for
// e.Name in registration order, then wildcard listeners. It reports
// whether the event was cancelled. Exception events are never cancelled
// but a true result still stops propagation.
func (em *Emitter) Emit(e *Event, priority Handler) bool {
	em.mu.RLock()
	named := append([]listener(nil), em.byName[e.Name]...)
	wildcard := append([]listener(nil), em.wildcard...)
	em.mu.RUnlock()

	stopped := func(result bool) bool {
		return result || e.DefaultPrevented()
	}

	if priority != nil && stopped(priority(e)) {
		return e.Cancelable()
	}
	for _, l := range named {
		if l.once {
			em.remove(e.Name, l.id)
		}
		if stopped(l.fn(e)) {
			return e.Cancelable()
		}
	}
	for _, l := range wildcard {
		if stopped(l.fn(e)) {
			return e.Cancelable()
		}
	}
	return false
}
