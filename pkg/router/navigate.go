package router

import (
	"strings"

	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/page"
)

// Preserve decides whether scroll position or component state survives a
// visit. It is one of PreserveNever, PreserveAlways, PreserveOnErrors or
// a predicate built with PreserveIf.
type Preserve struct {
	mode preserveMode
	fn   func(*page.Page) bool
}

type preserveMode int

const (
	preserveNever preserveMode = iota
	preserveAlways
	preserveErrors
	preservePredicate
)

var (
	PreserveNever    = Preserve{mode: preserveNever}
	PreserveAlways   = Preserve{mode: preserveAlways}
	PreserveOnErrors = Preserve{mode: preserveErrors}
)

// PreserveIf preserves when fn reports true for the next page.
func PreserveIf(fn func(next *page.Page) bool) Preserve {
	return Preserve{mode: preservePredicate, fn: fn}
}

// Resolve evaluates the policy against the next page.
func (p Preserve) Resolve(next *page.Page, errorBag string) bool {
	switch p.mode {
	case preserveAlways:
		return true
	case preserveErrors:
		return next.HasErrors(errorBag)
	case preservePredicate:
		return p.fn != nil && p.fn(next)
	default:
		return false
	}
}

// VisitOptions configures one visit.
type VisitOptions struct {
	Method         string
	Data           any
	Replace        bool
	Background     bool
	PreserveScroll Preserve
	PreserveState  Preserve
	PreserveURL    bool

	// Only lists the properties requested by a partial reload.
	Only []string

	Headers       map[string]string
	ErrorBag      string
	ForceFormData bool

	// Hooks are priority listeners that run before any registered
	// listener for this visit's events.
	Hooks events.Hooks
}

// VisitOption is a functional option for Visit.
type VisitOption func(*VisitOptions)

// WithMethod sets the HTTP method. The default is GET.
func WithMethod(method string) VisitOption {
	return func(o *VisitOptions) {
		o.Method = strings.ToUpper(method)
	}
}

// WithData sets the visit data: merged into the query string for GET,
// sent as the body otherwise.
func WithData(data any) VisitOption {
	return func(o *VisitOptions) {
		o.Data = data
	}
}

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() VisitOption {
	return func(o *VisitOptions) {
		o.Replace = true
	}
}

// WithBackground runs the visit without interrupting the active one.
func WithBackground() VisitOption {
	return func(o *VisitOptions) {
		o.Background = true
	}
}

// WithPreserveScroll keeps scroll positions according to p.
func WithPreserveScroll(p Preserve) VisitOption {
	return func(o *VisitOptions) {
		o.PreserveScroll = p
	}
}

// WithPreserveState keeps remembered state according to p.
func WithPreserveState(p Preserve) VisitOption {
	return func(o *VisitOptions) {
		o.PreserveState = p
	}
}

// WithPreserveURL keeps the address unchanged.
func WithPreserveURL() VisitOption {
	return func(o *VisitOptions) {
		o.PreserveURL = true
	}
}

// Only requests a partial reload of the named properties.
func Only(keys ...string) VisitOption {
	return func(o *VisitOptions) {
		o.Only = append(o.Only, keys...)
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) VisitOption {
	return func(o *VisitOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithErrorBag scopes validation errors to bag.
func WithErrorBag(bag string) VisitOption {
	return func(o *VisitOptions) {
		o.ErrorBag = bag
	}
}

// WithForceFormData sends the body as multipart form data even without
// files.
func WithForceFormData() VisitOption {
	return func(o *VisitOptions) {
		o.ForceFormData = true
	}
}

// WithHook installs fn as the priority listener for name on this visit.
func WithHook(name events.Name, fn events.Handler) VisitOption {
	return func(o *VisitOptions) {
		if o.Hooks == nil {
			o.Hooks = make(events.Hooks)
		}
		o.Hooks[name] = fn
	}
}

func buildVisitOptions(opts []VisitOption) VisitOptions {
	o := VisitOptions{Method: "GET"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Method == "" {
		o.Method = "GET"
	}
	return o
}
