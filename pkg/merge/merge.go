package merge

import (
	"fmt"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/page"
)

// MergeFragments computes the next fragment map. Regions are the union of
// both sides. Only the first fragment of an incoming stack is considered.
func MergeFragments(current, incoming page.Fragments, cfg Config) page.Fragments {
	names := make(map[string]struct{}, len(current)+len(incoming))
	for name := range current {
		names[name] = struct{}{}
	}
	for name := range incoming {
		names[name] = struct{}{}
	}

	out := make(page.Fragments, len(names))
	for name := range names {
		ctx := Context{Name: name, Current: current, Next: incoming}
		if stack, ok := mergeRegion(ctx, cfg); ok {
			out[name] = stack
		}
	}
	return out
}

// mergeRegion returns the region's next stack and whether the region is
// present in the output at all.
func mergeRegion(ctx Context, cfg Config) ([]*page.Fragment, bool) {
	curStack, hasCurrent := ctx.Current[ctx.Name]
	inStack, hasIncoming := ctx.Next[ctx.Name]

	var next *page.Fragment
	if len(inStack) > 0 {
		next = inStack[0]
	}

	switch {
	case next != nil:
		return placeFragment(ctx, cfg, curStack, next), true
	case hasIncoming && inStack == nil:
		return nil, true
	case !cfg.inert(ctx):
		return nil, true
	case hasCurrent:
		return curStack, true
	default:
		return nil, false
	}
}

func placeFragment(ctx Context, cfg Config, curStack []*page.Fragment, incoming *page.Fragment) []*page.Fragment {
	next := incoming.Clone()

	var first, top *page.Fragment
	if len(curStack) > 0 {
		first = curStack[0]
	}
	topIndex := -1
	for i := len(curStack) - 1; i >= 0; i-- {
		if curStack[i] != nil {
			top, topIndex = curStack[i], i
			break
		}
	}

	stacked := cfg.stacked(ctx)
	switch {
	case !stacked || next.Fallback || sameLocation(first, next):
		adopt(ctx, cfg, first, next)
		return []*page.Fragment{next}
	case top != nil && topIndex > 0 && sameLocation(top, next):
		adopt(ctx, cfg, top, next)
		stack := make([]*page.Fragment, topIndex+1)
		copy(stack, curStack[:topIndex])
		stack[topIndex] = next
		return stack
	default:
		stack := make([]*page.Fragment, 0, len(curStack)+1)
		stack = append(stack, curStack...)
		return append(stack, next)
	}
}

// adopt makes next take the place of prev: it inherits prev's properties
// (its own win) and, when the component or location is unchanged, prev's
// visit.
func adopt(ctx Context, cfg Config, prev, next *page.Fragment) {
	if prev == nil {
		return
	}
	if len(prev.Properties) > 0 {
		props := make(page.Properties, len(prev.Properties)+len(next.Properties))
		for k, v := range prev.Properties {
			props[k] = page.CloneValue(v)
		}
		for k, v := range next.Properties {
			props[k] = v
		}
		next.Properties = props
	}

	sameComponent := prev.Component.ID != "" && prev.Component.ID == next.Component.ID
	if (cfg.lazy(ctx) && sameComponent) || sameLocation(prev, next) {
		if visit := prev.Visit(); visit != nil {
			stub := next.Page
			if stub == nil {
				stub = &page.Page{}
			}
			carried := *stub
			carried.Visit = visit
			next.Page = &carried
		}
	}
}

func sameLocation(a, b *page.Fragment) bool {
	if a == nil || b == nil {
		return false
	}
	la, lb := a.Location(), b.Location()
	return !la.IsZero() && la.Equal(lb)
}

// MergePages merges incoming over current (which may be nil). When incoming
// extends a base page, the base is merged over current first, carrying the
// incoming visit, and incoming is then merged over that result.
func MergePages(current, incoming *page.Page, cfg Config) (*page.Page, error) {
	return mergePages(current, incoming, cfg, 0)
}

func mergePages(current, incoming *page.Page, cfg Config, depth int) (*page.Page, error) {
	if incoming == nil {
		return current, nil
	}
	if depth > page.MaxBaseDepth {
		return nil, errors.New("N003").WithDetail(fmt.Sprintf("base chain deeper than %d", page.MaxBaseDepth))
	}

	if incoming.Base != nil {
		base := *incoming.Base
		base.Visit = incoming.Visit
		merged, err := mergePages(current, &base, cfg, depth+1)
		if err != nil {
			return nil, err
		}
		head := *incoming
		head.Base = nil
		return mergePages(merged, &head, cfg, depth+1)
	}

	current.AttachFragments()
	incoming.AttachFragments()

	next := &page.Page{
		Location:        incoming.Location,
		Visit:           incoming.Visit,
		Version:         incoming.Version,
		Layout:          incoming.Layout,
		Defaults:        incoming.Defaults,
		RememberedState: incoming.RememberedState,
		ScrollRegions:   incoming.ScrollRegions,
	}

	var curProps page.Properties
	var curFragments page.Fragments
	if current != nil {
		curProps = current.Properties
		curFragments = current.Fragments
	}
	next.Properties = mergeProperties(curProps, incoming.Properties)
	next.Fragments = MergeFragments(curFragments, incoming.Fragments, cfg)
	return next, nil
}

// mergeProperties carries current's properties over, except validation
// errors, which only ever describe the response that sent them.
func mergeProperties(current, incoming page.Properties) page.Properties {
	if current == nil && incoming == nil {
		return nil
	}
	out := make(page.Properties, len(current)+len(incoming))
	for k, v := range current {
		if k == page.ErrorsKey {
			continue
		}
		out[k] = page.CloneValue(v)
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// PageProperties flattens a page's properties: top-level properties plus,
// for every fragment produced at the page's own location, its properties
// under "<fragment>/<key>". Regions are visited in name order and stacks
// bottom to top; later fragments win conflicts.
func PageProperties(p *page.Page) page.Properties {
	if p == nil {
		return nil
	}
	out := make(page.Properties, len(p.Properties))
	for k, v := range p.Properties {
		out[k] = v
	}
	for _, name := range p.Fragments.Names() {
		for _, f := range p.Fragments[name] {
			if f == nil || !f.Location().SamePage(p.Location) {
				continue
			}
			prefix := f.Name
			if prefix == "" {
				prefix = name
			}
			for k, v := range f.Properties {
				out[prefix+"/"+k] = v
			}
		}
	}
	return out
}
