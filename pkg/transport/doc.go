// Package transport performs the HTTP exchange of a Navigare visit.
//
// A Request carries the already-encoded visit: the target URL, the wire
// method, the body and the optional partial-reload, error-bag and version
// values. HTTP attaches the standard protocol headers, reports upload
// progress and returns the raw Response, which callers classify with
// Response.Kind:
//
//	KindPage      the response carries the X-Navigare marker and a page body
//	KindRedirect  status 409 with X-Navigare-Location: leave the application
//	KindInvalid   anything else
//
// Transport errors (DNS, refused connections, cancelled contexts) are
// returned as Go errors; HTTP error statuses are not errors at this layer.
package transport
