package merge

import "github.com/vango-dev/navigare/pkg/page"

// Context is handed to policy functions.
type Context struct {
	// Name is the region being merged.
	Name string

	// Current holds the current page's fragments.
	Current page.Fragments

	// Next holds the incoming page's fragments.
	Next page.Fragments
}

// Policy is either a fixed value or a function of the merge context.
// The zero Policy is unset and resolves to the caller's default.
type Policy[T any] struct {
	value T
	fn    func(Context) T
	set   bool
}

// Value returns a fixed policy.
func Value[T any](v T) Policy[T] {
	return Policy[T]{value: v, set: true}
}

// Func returns a policy computed per region.
func Func[T any](fn func(Context) T) Policy[T] {
	return Policy[T]{fn: fn, set: fn != nil}
}

// IsSet reports whether the policy was configured.
func (p Policy[T]) IsSet() bool {
	return p.set
}

// Resolve evaluates the policy, falling back to def when unset.
func (p Policy[T]) Resolve(ctx Context, def T) T {
	switch {
	case !p.set:
		return def
	case p.fn != nil:
		return p.fn(ctx)
	default:
		return p.value
	}
}

// Region is the merge policy of one fragment region.
type Region struct {
	Stacked Policy[bool]
	Inert   Policy[bool]
	Lazy    Policy[bool]
}

// Config maps region names to their policy. Regions without an entry use
// the defaults.
type Config map[string]Region

func (c Config) stacked(ctx Context) bool {
	return c[ctx.Name].Stacked.Resolve(ctx, false)
}

func (c Config) lazy(ctx Context) bool {
	return c[ctx.Name].Lazy.Resolve(ctx, true)
}

// inert defaults to true when any other region carrying an incoming
// fragment resolves as stacked.
func (c Config) inert(ctx Context) bool {
	region := c[ctx.Name]
	if region.Inert.IsSet() {
		return region.Inert.Resolve(ctx, false)
	}
	for name, stack := range ctx.Next {
		if name == ctx.Name || len(stack) == 0 || stack[0] == nil {
			continue
		}
		other := ctx
		other.Name = name
		if c.stacked(other) {
			return true
		}
	}
	return false
}
