package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/navigare/internal/config"
	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/location"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/resolver"
	"github.com/vango-dev/navigare/pkg/router"
	"github.com/vango-dev/navigare/pkg/telemetry"
	"github.com/vango-dev/navigare/pkg/transport"
)

// session is a booted router with its storage and telemetry.
type session struct {
	router     *router.Router
	registry   *prometheus.Registry
	metrics    *telemetry.Metrics
	components *resolver.Cache[string]

	closers []func() error
}

// openSession fetches entry from the configured server and boots a router
// on the page it returns.
func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, entry string, opts ...router.Option) (*session, error) {
	base, err := location.Parse(cfg.BaseURL, location.Location{})
	if err != nil {
		return nil, err
	}
	loc, err := location.Parse(entry, base)
	if err != nil {
		return nil, err
	}

	tr := transport.NewHTTP(
		transport.WithTimeout(cfg.TimeoutDuration()),
		transport.WithTracer(otel.Tracer(cfg.Telemetry.TracerName)),
		transport.WithLogger(logger.With("component", "transport")),
	)
	initial, err := fetchInitial(ctx, tr, loc, cfg.Version)
	if err != nil {
		return nil, err
	}

	s := &session{registry: prometheus.NewRegistry()}

	var storage history.Storage = history.NewMemoryStorage()
	if cfg.Storage.Driver == "bolt" {
		path := cfg.StoragePath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.New("N030").WithDetail(path).Wrap(err)
		}
		bolt, err := history.OpenBolt(path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, bolt.Close)
		storage = bolt
	}

	s.components = resolver.New(func(ctx context.Context, c page.Component) (string, error) {
		if c.Path != "" {
			return c.Path, nil
		}
		return c.ID, nil
	}, resolver.WithLogger(logger.With("component", "resolver")))

	ropts := []router.Option{
		router.WithLogger(logger.With("component", "router")),
		router.WithTransport(tr),
		router.WithStorage(storage),
		router.WithArrayFormat(location.ArrayFormat(cfg.ArrayFormat)),
		router.WithComponents(s.components),
	}
	if cfg.Version != "" {
		ropts = append(ropts, router.WithVersion(cfg.Version))
	}
	r, err := router.New(initial, append(ropts, opts...)...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.router = r

	s.metrics = telemetry.NewMetrics(
		telemetry.WithRegistry(s.registry),
		telemetry.WithNamespace(cfg.Telemetry.Namespace),
	)
	offMetrics := s.metrics.Attach(r)
	offTracing := telemetry.NewTracing(telemetry.WithTracerName(cfg.Telemetry.TracerName)).Attach(r)
	s.closers = append([]func() error{func() error {
		r.Wait()
		offMetrics()
		offTracing()
		return nil
	}}, s.closers...)

	return s, nil
}

// fetchInitial requests loc the way a first client-side visit would and
// decodes the page.
func fetchInitial(ctx context.Context, tr transport.Transport, loc location.Location, version string) (*page.Page, error) {
	res, err := tr.Do(ctx, &transport.Request{
		URL:     loc.WithoutHash(),
		Method:  "GET",
		Version: version,
	})
	if err != nil {
		return nil, errors.New("N013").WithDetail("GET " + loc.Href).Wrap(err)
	}
	switch res.Kind() {
	case transport.KindPage:
	case transport.KindRedirect:
		return nil, errors.New("N010").
			WithDetail("server redirected the first page to " + res.RedirectLocation()).
			WithSuggestion("Point baseURL at the redirect target")
	default:
		return nil, errors.New("N010").
			WithDetail(loc.Href + " did not answer with a Navigare page")
	}
	p, err := page.Decode(res.Body)
	if err != nil {
		return nil, err
	}
	if err := p.Normalize(loc); err != nil {
		return nil, err
	}
	return p, nil
}

// Close waits for background visits and releases storage.
func (s *session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
