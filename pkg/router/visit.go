package router

import (
	"context"
	stderrors "errors"
	"net/url"
	"time"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/merge"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

// Route resolves itself to a location relative to the current one.
type Route interface {
	Resolve(current location.Location) (location.Location, error)
}

// NamedRoute refers to an entry of the router's route table.
type NamedRoute struct {
	Name   string
	Params map[string]string
}

// Named returns a reference to the named route.
func Named(name string, params map[string]string) NamedRoute {
	return NamedRoute{Name: name, Params: params}
}

// Visit navigates to to, which may be a string, *url.URL, url.URL,
// location.Location, NamedRoute or Route. It returns once the visit has
// reached a terminal state, with a snapshot of the visit.
//
// Only a routable that cannot be resolved is reported as an error; every
// other failure is delivered through events.
func (r *Router) Visit(ctx context.Context, to any, opts ...VisitOption) (*page.Visit, error) {
	loc, err := r.resolve(to)
	if err != nil {
		return nil, err
	}
	return r.visit(ctx, loc, buildVisitOptions(opts)), nil
}

// Get visits to with GET, merging data into the query string.
func (r *Router) Get(ctx context.Context, to any, data any, opts ...VisitOption) (*page.Visit, error) {
	return r.Visit(ctx, to, append([]VisitOption{WithMethod("GET"), WithData(data)}, opts...)...)
}

// Post visits to with POST.
func (r *Router) Post(ctx context.Context, to any, data any, opts ...VisitOption) (*page.Visit, error) {
	return r.Visit(ctx, to, append([]VisitOption{WithMethod("POST"), WithData(data)}, opts...)...)
}

// Put visits to with PUT.
func (r *Router) Put(ctx context.Context, to any, data any, opts ...VisitOption) (*page.Visit, error) {
	return r.Visit(ctx, to, append([]VisitOption{WithMethod("PUT"), WithData(data)}, opts...)...)
}

// Patch visits to with PATCH.
func (r *Router) Patch(ctx context.Context, to any, data any, opts ...VisitOption) (*page.Visit, error) {
	return r.Visit(ctx, to, append([]VisitOption{WithMethod("PATCH"), WithData(data)}, opts...)...)
}

// Delete visits to with DELETE.
func (r *Router) Delete(ctx context.Context, to any, opts ...VisitOption) (*page.Visit, error) {
	return r.Visit(ctx, to, append([]VisitOption{WithMethod("DELETE")}, opts...)...)
}

// Reload revisits the current location, preserving scroll and state
// unless opts say otherwise.
func (r *Router) Reload(ctx context.Context, opts ...VisitOption) (*page.Visit, error) {
	cur := r.history.Current()
	if cur == nil {
		return nil, errors.New("N001").WithDetail("no current page")
	}
	base := []VisitOption{WithPreserveScroll(PreserveAlways), WithPreserveState(PreserveAlways)}
	return r.Visit(ctx, cur.Location, append(base, opts...)...)
}

// Cancel cancels the active visit if its id is id. It is a no-op for any
// other id or for a visit that already finished.
func (r *Router) Cancel(id string) {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != nil && active.visit.ID == id {
		r.cancel(active, false)
	}
}

func (r *Router) resolve(to any) (location.Location, error) {
	var current location.Location
	if p := r.history.Current(); p != nil {
		current = p.Location
	}

	switch v := to.(type) {
	case string:
		return location.Parse(v, current)
	case *url.URL:
		if v == nil {
			break
		}
		return location.Parse(v.String(), current)
	case url.URL:
		return location.Parse(v.String(), current)
	case location.Location:
		if v.Origin != "" {
			return v, nil
		}
		return location.Parse(v.Href, current)
	case NamedRoute:
		href, err := r.cfg.Routes.Build(v.Name, v.Params)
		if err != nil {
			return location.Location{}, err
		}
		return location.Parse(href, current)
	case Route:
		return v.Resolve(current)
	}
	return location.Location{}, errors.New("N001").WithDetail("unsupported routable type")
}

// visit runs one visit to completion and returns its terminal snapshot.
func (r *Router) visit(ctx context.Context, loc location.Location, o VisitOptions) (out *page.Visit) {
	if o.Method == "GET" {
		loc = location.MergeQuery(loc, o.Data, r.cfg.ArrayFormat)
	}

	v := page.NewVisit(loc)
	v.Method = o.Method
	if o.Method != "GET" {
		v.Data = o.Data
	}
	v.Replace = o.Replace
	v.Background = o.Background
	v.PreserveURL = o.PreserveURL
	v.Properties = o.Only
	v.Headers = o.Headers
	v.ErrorBag = o.ErrorBag

	rec := &visitRecord{visit: v, opts: o}
	if r.emit(rec, events.New(events.Before)) {
		r.logger.Debug("visit prevented", "visit_id", v.ID, "href", loc.Href)
		return v.Clone()
	}

	vctx, cancel := context.WithCancel(ctx)
	rec.cancel = cancel
	rec.started = time.Now()

	if !o.Background {
		r.mu.Lock()
		prev := r.active
		r.mu.Unlock()
		if prev != nil {
			r.cancel(prev, true)
		}
		if err := r.history.SaveScroll(); err != nil {
			r.logger.Warn("scroll capture failed", "error", err)
		}
		r.mu.Lock()
		r.active = rec
		r.mu.Unlock()
	}

	defer func() {
		r.finish(rec)
		out = r.snapshot(rec)
		if rec.committed {
			r.loadDeferred(r.history.Current())
		}
	}()

	r.emit(rec, events.New(events.Start))
	r.logger.Debug("visit started", "visit_id", v.ID, "method", v.Method, "href", loc.Href, "background", o.Background)

	req, err := r.buildRequest(rec)
	if err != nil {
		r.exception(rec, err)
		return
	}

	res, err := r.cfg.Transport.Do(vctx, req)
	if r.finished(rec) {
		// Interrupted or cancelled while in flight: the response is stale.
		return
	}
	if err != nil {
		if stderrors.Is(err, context.Canceled) && ctx.Err() != nil {
			r.cancel(rec, false)
			return
		}
		r.exception(rec, errors.New("N013").Wrap(err))
		return
	}

	switch res.Kind() {
	case transport.KindRedirect:
		r.redirect(rec, res)
	case transport.KindPage:
		next, err := page.Decode(res.Body)
		if err != nil {
			r.exception(rec, err)
			break
		}
		if err := r.loadComponents(vctx, next); err != nil {
			r.exception(rec, err)
			break
		}
		if err := r.commit(rec, next); err != nil {
			r.exception(rec, err)
		}
	default:
		r.invalid(rec, res)
	}
	return
}

func (r *Router) buildRequest(rec *visitRecord) (*transport.Request, error) {
	v := rec.visit
	req := &transport.Request{
		URL:        v.Location.WithoutHash(),
		Method:     v.Method,
		Properties: v.Properties,
		ErrorBag:   v.ErrorBag,
		Headers:    v.Headers,
		Version:    r.cfg.Version,
	}
	if req.Version == "" {
		if cur := r.history.Current(); cur != nil {
			req.Version = cur.Version
		}
	}
	if v.Method != "GET" {
		body, err := location.EncodeBody(rec.opts.Data, v.Method, r.cfg.ArrayFormat, rec.opts.ForceFormData)
		if err != nil {
			return nil, err
		}
		req.Method = body.Method
		req.Body = body
		req.OnProgress = func(loaded, total int64) {
			e := events.New(events.Progress)
			e.Progress = &events.UploadProgress{
				Loaded:     loaded,
				Total:      total,
				Percentage: transport.Percentage(loaded, total),
			}
			r.emit(rec, e)
		}
	}
	return req, nil
}

// loadComponents loads the top fragment component of every region of p
// and of its base chain.
func (r *Router) loadComponents(ctx context.Context, p *page.Page) error {
	if r.cfg.Components == nil {
		return nil
	}
	for ; p != nil; p = p.Base {
		for _, name := range p.Fragments.Names() {
			f := p.Fragments.Top(name)
			if f == nil {
				continue
			}
			if err := r.cfg.Components.Load(ctx, f.Component); err != nil {
				return err
			}
		}
	}
	return nil
}

// commit merges next into history and emits the visit's outcome.
func (r *Router) commit(rec *visitRecord, next *page.Page) error {
	v := rec.visit
	if err := next.Normalize(v.Location); err != nil {
		return err
	}

	current := r.history.Current()
	next.Visit = r.snapshot(rec)
	merged, err := merge.MergePages(current, next, r.cfg.Fragments)
	if err != nil {
		return err
	}
	merged.Visit = next.Visit

	preserveScroll := rec.opts.PreserveScroll.Resolve(merged, v.ErrorBag)
	preserveState := rec.opts.PreserveState.Resolve(merged, v.ErrorBag)
	r.mu.Lock()
	v.PreserveScroll = preserveScroll
	v.PreserveState = preserveState
	r.mu.Unlock()

	if preserveState && current != nil && current.RememberedState != nil && merged.RememberedState == nil {
		merged.RememberedState = current.RememberedState
	}
	if merged.Location.SamePage(v.Location) && merged.Location.Hash == "" && v.Location.Hash != "" {
		merged.Location = merged.Location.WithHash(v.Location.Hash)
	}

	if r.finished(rec) {
		return nil
	}
	if rec.opts.Background && current != nil && !current.Location.SamePage(v.Location) {
		r.logger.Debug("stale background visit not committed", "visit_id", v.ID, "href", v.Location.Href)
	} else {
		mode, err := r.history.SetPage(merged, history.CommitOptions{
			Replace:        v.Replace || rec.opts.Background,
			PreserveScroll: preserveScroll || rec.opts.Background,
			PreserveURL:    v.PreserveURL,
		})
		if err != nil {
			return err
		}
		rec.committed = true
		r.logger.Debug("page committed", "visit_id", v.ID, "href", merged.Location.Href, "mode", mode.String())
		r.emit(rec, events.New(events.Navigate).WithPage(merged.Clone()))
	}

	if bag := merged.Errors(v.ErrorBag); len(bag) > 0 {
		e := events.New(events.Error).WithPage(merged.Clone())
		e.Errors = make(map[string]any, len(bag))
		for k, val := range bag {
			e.Errors[r.cfg.PropertyKeyTransform(k)] = page.CloneValue(val)
		}
		r.emit(rec, e)
	} else {
		r.emit(rec, events.New(events.Success).WithPage(merged.Clone()))
	}
	return nil
}

// redirect leaves the application for the location a 409 response names.
func (r *Router) redirect(rec *visitRecord, res *transport.Response) {
	v := rec.visit
	target, err := location.Parse(res.RedirectLocation(), v.Location)
	if err != nil {
		r.exception(rec, errors.New("N012").WithDetail(res.RedirectLocation()).Wrap(err))
		return
	}
	if target.Hash == "" && v.Location.Hash != "" && target.SamePage(v.Location) {
		target = target.WithHash(v.Location.Hash)
	}

	preserveScroll := rec.opts.PreserveScroll.Resolve(r.history.Current(), v.ErrorBag)
	if err := r.history.SetRedirectMarker(history.RedirectMarker{PreserveScroll: preserveScroll}); err != nil {
		r.logger.Warn("redirect marker not stored", "error", err)
	}

	r.logger.Info("full page redirect", "visit_id", v.ID, "href", target.Href)
	current, _ := location.Parse(r.cfg.Port.CurrentURL(), location.Location{})
	if target.Hash != "" && target.SamePage(current) {
		r.cfg.Port.Reload()
		return
	}
	r.cfg.Port.Assign(target.Href)
}

// invalid handles a response that is neither a page nor a redirect.
func (r *Router) invalid(rec *visitRecord, res *transport.Response) {
	if rec.opts.Background {
		e := events.New(events.Error)
		e.Errors = map[string]any{}
		r.emit(rec, e)
		return
	}
	e := events.New(events.Invalid)
	e.Response = res
	if r.emit(rec, e) {
		return
	}
	r.cfg.UnexpectedResponse(res)
}

// exception logs err and emits it. Listeners cannot suppress the log.
func (r *Router) exception(rec *visitRecord, err error) {
	v := rec.visit
	r.logger.Error("visit failed", "visit_id", v.ID, "href", v.Location.Href, "error", err)
	e := events.New(events.Exception)
	e.Err = err
	r.emit(rec, e)
}

// cancel ends rec as cancelled. It is a no-op once rec has finished.
func (r *Router) cancel(rec *visitRecord, interrupted bool) {
	r.mu.Lock()
	if rec.visit.Finished() {
		r.mu.Unlock()
		return
	}
	rec.visit.Cancelled = true
	rec.visit.Interrupted = interrupted
	if r.active == rec {
		r.active = nil
	}
	r.mu.Unlock()

	if rec.cancel != nil {
		rec.cancel()
	}
	r.logger.Debug("visit cancelled", "visit_id", rec.visit.ID, "interrupted", interrupted)
	r.retire(rec)
	r.emit(rec, events.New(events.Cancel))
	r.emit(rec, events.New(events.Finish))
}

// finish completes rec. It is a no-op once rec has finished.
func (r *Router) finish(rec *visitRecord) {
	r.mu.Lock()
	if rec.visit.Finished() {
		r.mu.Unlock()
		return
	}
	rec.visit.Completed = true
	if r.active == rec {
		r.active = nil
	}
	r.mu.Unlock()

	rec.cancel()
	r.logger.Debug("visit finished", "visit_id", rec.visit.ID, "duration", time.Since(rec.started))
	r.retire(rec)
	r.emit(rec, events.New(events.Finish))
}

// retire overwrites the pending copies of rec's visit embedded in the
// current page and its fragments with the visit's final state. Pages
// committed by other visits are untouched.
func (r *Router) retire(rec *visitRecord) {
	done := r.snapshot(rec)
	if cur := r.history.Current(); cur == nil || cur.Visit == nil || cur.Visit.ID != done.ID {
		return
	}
	set := func(v *page.Visit) {
		if v != nil && v.ID == done.ID {
			*v = *done
		}
	}
	err := r.history.Update(func(cur *page.Page) {
		set(cur.Visit)
		for _, stack := range cur.Fragments {
			for _, f := range stack {
				if f != nil && f.Page != nil {
					set(f.Page.Visit)
				}
			}
		}
	})
	if err != nil {
		r.logger.Warn("visit not retired", "visit_id", done.ID, "error", err)
	}
}

func (r *Router) finished(rec *visitRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rec.visit.Finished()
}

func (r *Router) snapshot(rec *visitRecord) *page.Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rec.visit.Clone()
}

// emit stamps e with a snapshot of rec's visit and dispatches it with the
// visit's hook as priority listener.
func (r *Router) emit(rec *visitRecord, e *events.Event) bool {
	e.Visit = r.snapshot(rec)
	return r.emitter.Emit(e, rec.opts.Hooks[e.Name])
}

// loadDeferred starts one background reload for the pending deferred
// properties of p, fragment properties included under their flattened
// "<fragment>/<key>" names, marking them requested first.
func (r *Router) loadDeferred(p *page.Page) {
	if p == nil {
		return
	}
	keys := page.PendingDeferred(merge.PageProperties(p))
	if len(keys) == 0 {
		return
	}
	err := r.history.Update(func(cur *page.Page) {
		props := merge.PageProperties(cur)
		for _, k := range keys {
			page.MarkRequested(props[k])
		}
	})
	if err != nil {
		r.logger.Warn("deferred properties not marked", "error", err)
	}

	r.logger.Debug("loading deferred properties", "keys", keys)
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		if _, err := r.Reload(context.Background(), WithBackground(), Only(keys...)); err != nil {
			r.logger.Warn("deferred reload failed", "error", err)
		}
	}()
}
