package router

import (
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/page"
)

// FragmentContext is what a view adapter needs to render one fragment.
type FragmentContext struct {
	Name       string
	RawRoute   string
	Parameters map[string]string
	Defaults   page.Properties
	Location   location.Location
	Properties page.Properties
	Component  page.Component
}

// FragmentContext describes the top fragment of region on the current
// page. It reports false when the region is empty.
func (r *Router) FragmentContext(region string) (FragmentContext, bool) {
	cur := r.history.Current()
	if cur == nil {
		return FragmentContext{}, false
	}
	f := cur.Fragments.Top(region)
	if f == nil {
		return FragmentContext{}, false
	}
	return r.fragmentContext(f), true
}

// FragmentContexts describes every fragment of region, bottom first.
func (r *Router) FragmentContexts(region string) []FragmentContext {
	cur := r.history.Current()
	if cur == nil {
		return nil
	}
	stack := cur.Fragments[region]
	out := make([]FragmentContext, 0, len(stack))
	for _, f := range stack {
		if f != nil {
			out = append(out, r.fragmentContext(f))
		}
	}
	return out
}

// Bind copies the fragment's route parameters into the struct target
// points to. See RouteMatch.Bind.
func (c FragmentContext) Bind(target any) error {
	return bindParams(c.Parameters, target)
}

func (r *Router) fragmentContext(f *page.Fragment) FragmentContext {
	ctx := FragmentContext{
		Name:       f.Name,
		Location:   f.Location(),
		Properties: f.Properties,
		Component:  f.Component,
	}
	if f.Page != nil {
		ctx.Defaults = f.Page.Defaults
	}
	if m, ok := r.cfg.Routes.Match(ctx.Location.Pathname); ok {
		ctx.RawRoute = m.Pattern
		ctx.Parameters = m.Params
	}
	return ctx
}
