package navtest

import (
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/page"
)

// Builder assembles a page.
type Builder struct {
	p *page.Page
}

// NewPage starts a page at href, which must be absolute.
func NewPage(href string) *Builder {
	return &Builder{p: &page.Page{
		Location:   location.MustParse(href),
		Properties: page.Properties{},
	}}
}

// Prop sets a top-level property.
func (b *Builder) Prop(key string, value any) *Builder {
	b.p.Properties[key] = value
	return b
}

// Deferred marks key as a deferred property.
func (b *Builder) Deferred(key string) *Builder {
	return b.Prop(key, page.Deferred())
}

// Errors sets the validation error bag.
func (b *Builder) Errors(errs map[string]any) *Builder {
	return b.Prop(page.ErrorsKey, errs)
}

// Fragment pushes a fragment for component onto region.
func (b *Builder) Fragment(region, component string, props page.Properties) *Builder {
	if b.p.Fragments == nil {
		b.p.Fragments = page.Fragments{}
	}
	b.p.Fragments[region] = append(b.p.Fragments[region], &page.Fragment{
		Name:       region,
		Component:  page.Component{ID: component},
		Properties: props,
	})
	return b
}

// Fallback pushes a fallback fragment onto region.
func (b *Builder) Fallback(region, component string) *Builder {
	b.Fragment(region, component, nil)
	stack := b.p.Fragments[region]
	stack[len(stack)-1].Fallback = true
	return b
}

// Clear sends region as an explicit null.
func (b *Builder) Clear(region string) *Builder {
	if b.p.Fragments == nil {
		b.p.Fragments = page.Fragments{}
	}
	b.p.Fragments[region] = nil
	return b
}

// Version sets the asset version.
func (b *Builder) Version(v string) *Builder {
	b.p.Version = v
	return b
}

// Defaults sets route defaults.
func (b *Builder) Defaults(d page.Properties) *Builder {
	b.p.Defaults = d
	return b
}

// Base sets the page this one extends.
func (b *Builder) Base(base *page.Page) *Builder {
	b.p.Base = base
	return b
}

// Build attaches fragment back-references and returns the page.
func (b *Builder) Build() *page.Page {
	b.p.AttachFragments()
	return b.p
}
