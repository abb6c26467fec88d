// Package merge computes the next page from the current page and an incoming
// one. The functions are pure apart from stamping fragment back-references.
//
// Each fragment region is merged under a Region policy:
//
//   - Stacked: new fragments are pushed onto the region instead of
//     replacing it (nested modals).
//   - Inert: a region the incoming page does not mention keeps its current
//     stack instead of being cleared. Defaults to true while another
//     incoming region is stacked, so opening a modal leaves the page below
//     it alone.
//   - Lazy: when the incoming fragment renders the same component as the
//     fragment it replaces, the existing visit is carried over so view
//     adapters do not remount it. Defaults to true.
//
// Every policy field is either a fixed value or a function of the region
// being merged:
//
//	cfg := merge.Config{
//	    "modal": {Stacked: merge.Value(true)},
//	    "main":  {Lazy: merge.Func(func(c merge.Context) bool { return c.Name != "main" })},
//	}
//	next, err := merge.MergePages(current, incoming, cfg)
package merge
