// Package page defines the navigation state model shared by every Navigare
// component: pages, fragments, components and visits.
//
// A Page is what a server returns for a visit. Besides its own properties it
// carries named fragment regions:
//
//	{
//	  "location": "https://app.test/users/1",
//	  "properties": {"title": "Ada"},
//	  "fragments": {
//	    "main":  [{"name": "main", "component": {"id": "users.show", "path": "users/show"}, "properties": {"user": 1}}],
//	    "modal": null
//	  },
//	  "version": "3f2a"
//	}
//
// A region maps to an ordered stack of fragments (index 0 is the bottom),
// to null when it is explicitly cleared, or is absent when untouched.
// Fragments point back at the page that produced them through a stub page
// (see Page.Stub) so the tree stays acyclic and serializes cleanly into
// history entries.
//
// Pages handed to callers are always deep copies (see Page.Clone).
package page
