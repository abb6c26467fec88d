// Package errors provides structured, coded errors for Navigare.
//
// Every failure that reaches a caller or a log line carries a short code
// (e.g. "N001") that maps to a registered template:
//   - A short message describing the error
//   - A longer explanation
//   - A documentation URL
//
// # Error Categories
//
//   - routing: a routable could not be turned into a location
//   - protocol: a server response violated the page wire contract
//   - history: a history entry could not be read or written
//   - storage: the session storage backend failed
//   - config: navigare.json / navigare.yaml problems
//
// # Usage
//
//	err := errors.New("N001").
//	    WithDetail("unsupported routable type int").
//	    WithSuggestion("Pass a string, *url.URL or a type implementing router.Route")
//
//	fmt.Println(err.Format())
//
// Errors wrap their cause, so errors.Is / errors.As from the standard library
// see through them.
package errors
