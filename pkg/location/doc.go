// Package location parses, normalizes and compares the URLs a Navigare
// router navigates between, and encodes visit payloads for the wire.
//
// A Location is a fully decomposed URL. Two locations denote the same page
// when their hrefs are equal once the fragment identifier is dropped:
//
//	a, _ := location.Parse("/users?page=2#top", base)
//	b, _ := location.Parse("/users?page=2", base)
//	a.SamePage(b) // true
//
// Request data is merged into query strings for GET visits and encoded as
// JSON or multipart form data otherwise:
//
//	loc = location.MergeQuery(loc, map[string]any{"sort": "name"}, location.Indices)
//	body, err := location.EncodeBody(data, "PUT", location.Brackets, false)
package location
