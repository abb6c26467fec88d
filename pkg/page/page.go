package page

import (
	"sort"

	"github.com/vango-dev/navigare/pkg/location"
)

// ErrorsKey is the well-known property holding validation errors.
const ErrorsKey = "__errors"

// Properties is a bag of page or fragment properties.
type Properties map[string]any

// Component identifies a renderable unit. ID is a stable cache key; Path is
// handed to the external component resolver.
type Component struct {
	ID   string `json:"id" validate:"required"`
	Path string `json:"path"`
}

// Fragment is a named slot instance within a page region.
type Fragment struct {
	Name       string     `json:"name"`
	Component  Component  `json:"component"`
	Properties Properties `json:"properties,omitempty"`

	// Page is a non-owning back-reference to the stub of the page that
	// produced this fragment.
	Page *Page `json:"page,omitempty" validate:"-"`

	// Fallback marks placeholder content such as a loading or error state.
	Fallback bool `json:"fallback,omitempty"`
}

// Location returns the location of the page that produced the fragment.
func (f *Fragment) Location() location.Location {
	if f == nil || f.Page == nil {
		return location.Location{}
	}
	return f.Page.Location
}

// Visit returns the visit embedded in the fragment's page, if any.
func (f *Fragment) Visit() *Visit {
	if f == nil || f.Page == nil {
		return nil
	}
	return f.Page.Visit
}

// Fragments maps region names to fragment stacks. A key holding a nil slice
// is an explicit clear; a missing key leaves the region untouched.
type Fragments map[string][]*Fragment

// Names returns the region names in sorted order.
func (f Fragments) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Top returns the last non-nil fragment of a region's stack.
func (f Fragments) Top(name string) *Fragment {
	stack := f[name]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] != nil {
			return stack[i]
		}
	}
	return nil
}

// ScrollRegion is a saved scroll offset. The port decides which element
// each index refers to; Navigare only stores and replays the list.
type ScrollRegion struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Page is the unit of navigation state.
type Page struct {
	Location   location.Location `json:"location"`
	Properties Properties        `json:"properties,omitempty"`
	Fragments  Fragments         `json:"fragments,omitempty"`

	// Visit is the visit that produced this page.
	Visit *Visit `json:"visit,omitempty"`

	Version         string         `json:"version,omitempty"`
	Layout          any            `json:"layout,omitempty"`
	Defaults        Properties     `json:"defaults,omitempty"`
	RememberedState map[string]any `json:"rememberedState,omitempty"`
	ScrollRegions   []ScrollRegion `json:"scrollRegions,omitempty"`

	// Base is a parent page this page extends. It is merged first.
	Base *Page `json:"base,omitempty"`

	// Obsolete is set on stack entries beyond the current index.
	Obsolete bool `json:"obsolete,omitempty"`
}

// Stub returns the un-nested form of the page used as a fragment
// back-reference: no fragments, no base, no per-entry history state.
func (p *Page) Stub() *Page {
	if p == nil {
		return nil
	}
	return &Page{
		Location: p.Location,
		Visit:    p.Visit,
		Version:  p.Version,
		Defaults: p.Defaults,
	}
}

// AttachFragments stamps p's stub on every fragment lacking a back-reference
// and fills in missing fragment names from the region name.
func (p *Page) AttachFragments() {
	if p == nil {
		return
	}
	var stub *Page
	for name, stack := range p.Fragments {
		for _, f := range stack {
			if f == nil {
				continue
			}
			if f.Name == "" {
				f.Name = name
			}
			if f.Page == nil {
				if stub == nil {
					stub = p.Stub()
				}
				f.Page = stub
			}
		}
	}
}

// Normalize resolves a relative page location against base and recurses
// into the base chain and fragment stubs.
func (p *Page) Normalize(base location.Location) error {
	return p.normalize(base, 0)
}

func (p *Page) normalize(base location.Location, depth int) error {
	if p == nil {
		return nil
	}
	if depth > MaxBaseDepth {
		return errBaseDepth()
	}
	if p.Location.Href != "" && p.Location.Origin == "" {
		loc, err := location.Parse(p.Location.Href, base)
		if err != nil {
			return err
		}
		p.Location = loc
	}
	for _, stack := range p.Fragments {
		for _, f := range stack {
			if f != nil && f.Page != nil && f.Page.Location.Origin == "" && f.Page.Location.Href != "" {
				loc, err := location.Parse(f.Page.Location.Href, base)
				if err != nil {
					return err
				}
				f.Page.Location = loc
			}
		}
	}
	return p.Base.normalize(p.Location, depth+1)
}

// Errors returns the validation error bag, optionally scoped to errorBag.
func (p *Page) Errors(errorBag string) map[string]any {
	if p == nil {
		return nil
	}
	bag, _ := asMap(p.Properties[ErrorsKey])
	if errorBag != "" {
		scoped, _ := asMap(bag[errorBag])
		return scoped
	}
	return bag
}

// HasErrors reports whether the page carries a non-empty error bag.
func (p *Page) HasErrors(errorBag string) bool {
	return len(p.Errors(errorBag)) > 0
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Properties:
		return m, true
	}
	return nil, false
}
