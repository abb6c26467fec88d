package events

import (
	"reflect"
	"testing"
)

func TestEmitOrder(t *testing.T) {
	em := NewEmitter()
	var calls []string
	em.OnAny(func(*Event) bool { calls = append(calls, "any"); return false })
	em.On(Start, func(*Event) bool { calls = append(calls, "first"); return false })
	em.On(Start, func(*Event) bool { calls = append(calls, "second"); return false })

	cancelled := em.Emit(New(Start), func(*Event) bool {
		calls = append(calls, "priority")
		return false
	})
	if cancelled {
		t.Error("Emit() cancelled = true, want false")
	}
	want := []string{"priority", "first", "second", "any"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestEmitStopsOnTrue(t *testing.T) {
	em := NewEmitter()
	reached := false
	em.On(Before, func(*Event) bool { return true })
	em.On(Before, func(*Event) bool { reached = true; return false })

	if !em.Emit(New(Before), nil) {
		t.Error("Emit() = false, want cancelled")
	}
	if reached {
		t.Error("listener after cancelling listener ran")
	}
}

func TestEmitStopsOnPreventDefault(t *testing.T) {
	em := NewEmitter()
	reached := false
	em.On(Invalid, func(e *Event) bool { e.PreventDefault(); return false })
	em.On(Invalid, func(*Event) bool { reached = true; return false })

	e := New(Invalid)
	if !em.Emit(e, nil) {
		t.Error("Emit() = false, want cancelled")
	}
	if !e.DefaultPrevented() {
		t.Error("DefaultPrevented() = false")
	}
	if reached {
		t.Error("listener after PreventDefault ran")
	}
}

func TestPriorityCancels(t *testing.T) {
	em := NewEmitter()
	reached := false
	em.On(Before, func(*Event) bool { reached = true; return false })

	if !em.Emit(New(Before), func(*Event) bool { return true }) {
		t.Error("Emit() = false, want cancelled")
	}
	if reached {
		t.Error("registered listener ran after priority cancelled")
	}
}

func TestExceptionNotCancelable(t *testing.T) {
	em := NewEmitter()
	em.On(Exception, func(e *Event) bool {
		e.PreventDefault()
		return false
	})
	e := New(Exception)
	if em.Emit(e, nil) {
		t.Error("Emit(exception) = true, want false")
	}
	if e.DefaultPrevented() {
		t.Error("exception DefaultPrevented() = true")
	}
	if e.Cancelable() {
		t.Error("exception Cancelable() = true")
	}
}

func TestOnceAndOff(t *testing.T) {
	em := NewEmitter()
	n, m := 0, 0
	em.Once(Finish, func(*Event) bool { n++; return false })
	off := em.On(Finish, func(*Event) bool { m++; return false })

	em.Emit(New(Finish), nil)
	em.Emit(New(Finish), nil)
	off()
	em.Emit(New(Finish), nil)

	if n != 1 {
		t.Errorf("once listener calls = %d, want 1", n)
	}
	if m != 2 {
		t.Errorf("removed listener calls = %d, want 2", m)
	}
	if em.Count(Finish) != 0 {
		t.Errorf("Count() = %d, want 0", em.Count(Finish))
	}
}

func TestListenerRemovesItselfDuringEmit(t *testing.T) {
	em := NewEmitter()
	var off func()
	calls := 0
	off = em.On(Navigate, func(*Event) bool {
		calls++
		off()
		return false
	})
	em.On(Navigate, func(*Event) bool { calls++; return false })

	em.Emit(New(Navigate), nil)
	em.Emit(New(Navigate), nil)
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
