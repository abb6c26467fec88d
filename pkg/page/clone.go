package page

// Clone returns a deep copy of the page. Mutating the copy never affects the
// original.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Properties = cloneProperties(p.Properties)
	c.Defaults = cloneProperties(p.Defaults)
	c.Visit = p.Visit.Clone()
	c.Layout = CloneValue(p.Layout)
	if p.RememberedState != nil {
		c.RememberedState = CloneValue(p.RememberedState).(map[string]any)
	}
	if p.ScrollRegions != nil {
		c.ScrollRegions = append([]ScrollRegion(nil), p.ScrollRegions...)
	}
	c.Fragments = p.Fragments.Clone()
	c.Base = p.Base.Clone()
	return &c
}

// Clone returns a deep copy of the fragment map, preserving nil regions and
// nil stack entries.
func (f Fragments) Clone() Fragments {
	if f == nil {
		return nil
	}
	out := make(Fragments, len(f))
	for name, stack := range f {
		if stack == nil {
			out[name] = nil
			continue
		}
		copied := make([]*Fragment, len(stack))
		for i, frag := range stack {
			copied[i] = frag.Clone()
		}
		out[name] = copied
	}
	return out
}

// Clone returns a deep copy of the fragment, including its page stub.
func (f *Fragment) Clone() *Fragment {
	if f == nil {
		return nil
	}
	c := *f
	c.Properties = cloneProperties(f.Properties)
	c.Page = f.Page.Clone()
	return &c
}

func cloneProperties(p Properties) Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies the JSON-shaped containers (maps and slices) inside
// v. Other values are returned as-is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case Properties:
		return cloneProperties(val)
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		if val == nil {
			return val
		}
		return append([]string(nil), val...)
	case map[string]string:
		if val == nil {
			return val
		}
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	default:
		return v
	}
}
