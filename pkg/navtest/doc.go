// Package navtest provides test tooling for Navigare clients: page
// builders and a fixture server that speaks the protocol.
//
// The fixture is a chi router with a small demo application (users list,
// user pages, an edit modal that extends the user page, a validated form,
// an upload endpoint, deferred properties, a cross-origin redirect, a
// non-protocol error page and a slow endpoint for cancellation tests).
// Tests add their own routes with Page and Route and inspect what the
// client sent with Requests.
package navtest
