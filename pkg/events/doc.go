// Package events is the typed, cancelable event pipeline of a Navigare
// router.
//
// An emission runs the priority listener first (the per-visit callback
// passed with a visit's options), then every registered listener in
// registration order, then wildcard listeners. It stops at the first
// listener that returns true or, for cancelable events, calls
// PreventDefault:
//
//	em := events.NewEmitter()
//	off := em.On(events.Before, func(e *events.Event) bool {
//	    return e.Visit.Method == "DELETE" && !confirmed()
//	})
//	defer off()
//
//	if em.Emit(events.New(events.Before).WithVisit(v), nil) {
//	    // cancelled
//	}
//
// Every event is cancelable except Exception.
package events
