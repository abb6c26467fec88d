// Package resolver caches the modules that render page components.
//
// A Cache resolves each component id at most once. Concurrent requests for
// an id that is still resolving share one call to the underlying Func.
// Failed resolutions are not cached, so a later request retries.
package resolver

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/page"
)

// Func turns a component reference into the module that renders it.
type Func[M any] func(ctx context.Context, c page.Component) (M, error)

// Cache memoizes a Func by component id.
type Cache[M any] struct {
	fn     Func[M]
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	modules map[string]M
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New returns an empty cache over fn.
func New[M any](fn Func[M], opts ...Option) *Cache[M] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "resolver")
	}
	return &Cache[M]{fn: fn, logger: o.logger, modules: make(map[string]M)}
}

// Resolve returns the module for c, calling the Func only if c.ID has never
// resolved successfully.
func (c *Cache[M]) Resolve(ctx context.Context, comp page.Component) (M, error) {
	if m, ok := c.Lookup(comp.ID); ok {
		return m, nil
	}

	v, err, shared := c.group.Do(comp.ID, func() (any, error) {
		if m, ok := c.Lookup(comp.ID); ok {
			return m, nil
		}
		m, err := c.fn(ctx, comp)
		if err != nil {
			return m, errors.New("N014").WithDetail(comp.ID).Wrap(err)
		}
		c.mu.Lock()
		c.modules[comp.ID] = m
		c.mu.Unlock()
		c.logger.Debug("component resolved", "id", comp.ID, "path", comp.Path)
		return m, nil
	})
	if err != nil {
		var zero M
		c.logger.Warn("component resolution failed", "id", comp.ID, "shared", shared, "error", err)
		return zero, err
	}
	return v.(M), nil
}

// Load resolves comp and discards the module. It lets a Cache serve as a
// router component loader.
func (c *Cache[M]) Load(ctx context.Context, comp page.Component) error {
	_, err := c.Resolve(ctx, comp)
	return err
}

// Lookup returns the cached module for id without resolving.
func (c *Cache[M]) Lookup(id string) (M, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[id]
	return m, ok
}

// Len returns the number of resolved components.
func (c *Cache[M]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}
