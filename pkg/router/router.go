package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

// Router drives visits against a Navigare server and keeps the page stack.
// All methods are safe for concurrent use. At most one foreground visit is
// active; starting another interrupts it.
type Router struct {
	cfg     Config
	logger  *slog.Logger
	emitter *events.Emitter
	history *history.Coordinator

	mu          sync.Mutex
	active      *visitRecord
	scrollTimer *time.Timer

	background sync.WaitGroup
}

// visitRecord is the router's private view of a visit in flight.
type visitRecord struct {
	visit   *page.Visit
	opts    VisitOptions
	cancel  context.CancelFunc
	started time.Time

	// committed is set once the visit's page has entered history.
	committed bool
}

// New boots a router on initial, the page the server rendered for the
// first document. Depending on how the host reached that document, the
// committed page may instead be restored from history.
func New(initial *page.Page, opts ...Option) (*Router, error) {
	if initial == nil {
		return nil, errors.New("N011").WithDetail("initial page is nil")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	initial = initial.Clone()
	if initial.Visit == nil {
		initial.Visit = page.NewVisit(initial.Location)
		initial.Visit.Completed = true
	}
	initial.AttachFragments()

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults(initial.Location)

	r := &Router{
		cfg:     cfg,
		logger:  cfg.Logger,
		emitter: events.NewEmitter(),
	}
	if r.cfg.UnexpectedResponse == nil {
		r.cfg.UnexpectedResponse = r.logUnexpected
	}
	for _, l := range cfg.listeners {
		r.emitter.On(l.name, l.fn)
	}

	r.history = history.NewCoordinator(cfg.Port,
		history.WithStorage(cfg.Storage),
		history.WithLogger(cfg.Logger.With("scope", "history")),
	)
	cfg.Port.OnPopState(r.handlePopState)

	p, origin, err := r.history.Boot(initial)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("router booted", "href", p.Location.Href, "origin", origin.String())
	r.loadDeferred(p)
	return r, nil
}

// On registers a listener and returns a function that removes it.
func (r *Router) On(name events.Name, fn events.Handler) func() {
	return r.emitter.On(name, fn)
}

// Once registers a listener for the next event of the given type.
func (r *Router) Once(name events.Name, fn events.Handler) func() {
	return r.emitter.Once(name, fn)
}

// OnAny registers a listener for every event.
func (r *Router) OnAny(fn events.Handler) func() {
	return r.emitter.OnAny(fn)
}

// Page returns a copy of the current page.
func (r *Router) Page() *page.Page {
	return r.history.Current()
}

// Pages returns copies of every page on the stack.
func (r *Router) Pages() []*page.Page {
	return r.history.Pages()
}

// PreviousPage returns a copy of the page before the current one, or nil.
func (r *Router) PreviousPage() *page.Page {
	return r.history.Previous()
}

// ActiveVisit returns a copy of the foreground visit in flight, or nil.
func (r *Router) ActiveVisit() *page.Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	return r.active.visit.Clone()
}

// Routes returns the named route table.
func (r *Router) Routes() *Routes {
	return r.cfg.Routes
}

// Port returns the host history port.
func (r *Router) Port() history.Port {
	return r.cfg.Port
}

// Wait blocks until every background visit started so far has finished.
func (r *Router) Wait() {
	r.background.Wait()
}

// Remember stores value under key in the current page's remembered state
// and rewrites the history entry, so it survives back/forward traversal.
func (r *Router) Remember(key string, value any) error {
	return r.history.Update(func(p *page.Page) {
		if p.RememberedState == nil {
			p.RememberedState = make(map[string]any)
		}
		p.RememberedState[key] = value
	})
}

// Restore returns the value remembered under key on the current page.
func (r *Router) Restore(key string) (any, bool) {
	p := r.history.Current()
	if p == nil {
		return nil, false
	}
	v, ok := p.RememberedState[key]
	return v, ok
}

// RecordScroll captures scroll positions into the current history entry
// once the host has been quiet for the configured debounce interval.
// Hosts call it from their scroll handlers.
func (r *Router) RecordScroll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scrollTimer != nil {
		r.scrollTimer.Stop()
	}
	r.scrollTimer = time.AfterFunc(r.cfg.ScrollDebounce, func() {
		if err := r.history.SaveScroll(); err != nil {
			r.logger.Warn("scroll capture failed", "error", err)
		}
	})
}

// Back moves one page back. With no earlier page, a non-nil fallback is
// visited instead; otherwise the host's own back navigation is used.
func (r *Router) Back(ctx context.Context, fallback any) error {
	if !r.history.HasPrevious() && fallback != nil {
		_, err := r.Visit(ctx, fallback)
		return err
	}
	r.history.Back()
	return nil
}

// handlePopState reacts to host history traversal.
func (r *Router) handlePopState(state []byte) {
	if r.history.Popping() {
		if _, err := r.history.PopState(state); err != nil {
			r.logger.Warn("pop commit failed", "error", err)
		}
		return
	}

	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != nil {
		r.cancel(active, true)
	}

	p, err := r.history.PopState(state)
	if err != nil {
		return
	}
	r.emitter.Emit(events.New(events.Navigate).WithVisit(p.Visit).WithPage(p), nil)
}

func (r *Router) logUnexpected(res *transport.Response) {
	r.logger.Warn("unexpected response", "status", res.Status, "url", res.URL, "content_type", res.Header.Get("Content-Type"))
}
