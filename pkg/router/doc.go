// Package router is the client side of the Navigare protocol: it turns
// navigation requests into visits, merges the pages servers answer with
// into the current page, and keeps the host's history in step.
//
// # Visits
//
// A visit is one request/response cycle:
//
//	r, err := router.New(initial,
//	    router.WithFragmentPolicy("modal", merge.Region{Stacked: merge.Value(true)}),
//	)
//	v, err := r.Visit(ctx, "/users", router.WithData(map[string]any{"page": 2}))
//	v, err = r.Post(ctx, "/users", form, router.WithPreserveScroll(router.PreserveOnErrors))
//
// Visit blocks until the visit is terminal. The returned error is only set
// when the routable cannot be resolved; everything else is reported through
// events (before, start, progress, navigate, success, error, invalid,
// exception, cancel, finish).
//
// At most one foreground visit runs at a time. A new one interrupts the
// previous: the old visit gets cancel and finish before the new one emits
// start, and its late response is dropped. Background visits, such as the
// automatic reload of deferred properties, run alongside.
//
// # Routables
//
// Visit accepts strings (resolved against the current page), *url.URL,
// location.Location, a NamedRoute from the router's Routes table, or any
// Route implementation.
//
// # Snapshots
//
// Page, Pages, PreviousPage, ActiveVisit and every event payload are
// copies; mutating them never touches router state.
package router
