package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/merge"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/transport"
)

// Config holds router settings. Build it with Options.
type Config struct {
	Logger      *slog.Logger
	Transport   transport.Transport
	Port        history.Port
	Storage     history.Storage
	ArrayFormat location.ArrayFormat

	// Fragments holds per-region merge policy.
	Fragments merge.Config

	// PropertyKeyTransform maps server property keys, such as validation
	// error keys, to the names the view layer uses.
	PropertyKeyTransform func(string) string

	// UnexpectedResponse receives non-protocol responses whose invalid
	// event was not cancelled.
	UnexpectedResponse func(*transport.Response)

	// Version overrides the version sent with every request. By default
	// the current page's version is sent.
	Version string

	// ScrollDebounce delays RecordScroll captures.
	ScrollDebounce time.Duration

	Routes *Routes

	// Components, when set, loads every component of an incoming page
	// before it is committed.
	Components ComponentLoader

	listeners []listenerSpec
}

type listenerSpec struct {
	name events.Name
	fn   events.Handler
}

// ComponentLoader prepares the module that renders a component.
// resolver.Cache satisfies it.
type ComponentLoader interface {
	Load(ctx context.Context, c page.Component) error
}

// Option configures a Router.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTransport sets the transport. The default is transport.NewHTTP().
func WithTransport(t transport.Transport) Option {
	return func(c *Config) {
		c.Transport = t
	}
}

// WithPort sets the host history port. The default is an in-memory port
// positioned at the initial page.
func WithPort(p history.Port) Option {
	return func(c *Config) {
		c.Port = p
	}
}

// WithStorage sets the session storage used for the redirect marker.
func WithStorage(s history.Storage) Option {
	return func(c *Config) {
		c.Storage = s
	}
}

// WithArrayFormat sets how arrays are encoded in query strings and form
// data.
func WithArrayFormat(f location.ArrayFormat) Option {
	return func(c *Config) {
		c.ArrayFormat = f
	}
}

// WithFragmentPolicy sets the merge policy for a region.
func WithFragmentPolicy(region string, policy merge.Region) Option {
	return func(c *Config) {
		if c.Fragments == nil {
			c.Fragments = make(merge.Config)
		}
		c.Fragments[region] = policy
	}
}

// WithPropertyKeyTransform sets the server property key transform.
func WithPropertyKeyTransform(fn func(string) string) Option {
	return func(c *Config) {
		c.PropertyKeyTransform = fn
	}
}

// WithUnexpectedResponse sets the handler for non-protocol responses.
func WithUnexpectedResponse(fn func(*transport.Response)) Option {
	return func(c *Config) {
		c.UnexpectedResponse = fn
	}
}

// WithVersion sets a fixed asset version.
func WithVersion(v string) Option {
	return func(c *Config) {
		c.Version = v
	}
}

// WithScrollDebounce sets the RecordScroll debounce interval.
func WithScrollDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.ScrollDebounce = d
	}
}

// WithRoutes sets the named route table.
func WithRoutes(rt *Routes) Option {
	return func(c *Config) {
		c.Routes = rt
	}
}

// WithComponents sets the component loader.
func WithComponents(l ComponentLoader) Option {
	return func(c *Config) {
		c.Components = l
	}
}

// WithListener registers a listener before the first page is committed,
// so it also sees events from the initial deferred reloads.
func WithListener(name events.Name, fn events.Handler) Option {
	return func(c *Config) {
		c.listeners = append(c.listeners, listenerSpec{name: name, fn: fn})
	}
}

func (c *Config) applyDefaults(initial location.Location) {
	if c.Logger == nil {
		c.Logger = slog.Default().With("component", "router")
	}
	if c.Transport == nil {
		c.Transport = transport.NewHTTP(transport.WithLogger(c.Logger))
	}
	if c.Port == nil {
		c.Port = history.NewMemoryPort(initial.Href)
	}
	if c.Storage == nil {
		c.Storage = history.NewMemoryStorage()
	}
	if c.ArrayFormat == "" {
		c.ArrayFormat = location.Brackets
	}
	if c.PropertyKeyTransform == nil {
		c.PropertyKeyTransform = func(k string) string { return k }
	}
	if c.ScrollDebounce == 0 {
		c.ScrollDebounce = 100 * time.Millisecond
	}
	if c.Routes == nil {
		c.Routes = NewRoutes()
	}
}
