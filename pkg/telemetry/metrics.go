package telemetry

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/navigare/pkg/events"
)

// MetricsConfig configures visit metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "navigare").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for visit duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures visit metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "navigare",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Outcome labels for visits_total.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeInvalid   = "invalid"
	OutcomeException = "exception"
	OutcomeCancelled = "cancelled"
	// OutcomeLeft covers visits that finished without a page, such as a
	// redirect that left the application.
	OutcomeLeft = "left"
)

// Metrics turns router events into Prometheus metrics.
//
// Metrics collected:
//   - navigare_visits_total: visits by method and outcome
//   - navigare_visit_duration_seconds: start to finish latency by method
//   - navigare_visit_cancellations_total: cancellations by interrupted flag
//   - navigare_navigations_total: committed pages, including history traversal
//   - navigare_exceptions_total: visits that ended in an exception
//   - navigare_upload_bytes_total: request body bytes reported by progress
//   - navigare_history_entries: pages on the history stack
type Metrics struct {
	visitsTotal   *prometheus.CounterVec
	visitDuration *prometheus.HistogramVec
	cancellations *prometheus.CounterVec
	navigations   prometheus.Counter
	exceptions    prometheus.Counter
	uploadBytes   prometheus.Counter
	entries       prometheus.Gauge

	mu       sync.Mutex
	inflight map[string]*visitSample
}

type visitSample struct {
	started  time.Time
	outcome  string
	uploaded int64
}

// NewMetrics registers the visit metrics with the configured registry.
// Registering twice against the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		visitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "visits_total",
			Help:        "Total number of finished visits",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "outcome"}),

		visitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "visit_duration_seconds",
			Help:        "Visit duration from start to finish in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "visit_cancellations_total",
			Help:        "Total number of cancelled visits",
			ConstLabels: config.ConstLabels,
		}, []string{"interrupted"}),

		navigations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of pages made current",
			ConstLabels: config.ConstLabels,
		}),

		exceptions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "exceptions_total",
			Help:        "Total number of visits that ended in an exception",
			ConstLabels: config.ConstLabels,
		}),

		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "upload_bytes_total",
			Help:        "Total request body bytes sent by visits",
			ConstLabels: config.ConstLabels,
		}),

		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "history_entries",
			Help:        "Number of pages on the history stack",
			ConstLabels: config.ConstLabels,
		}),

		inflight: make(map[string]*visitSample),
	}
}

// Attach subscribes m to src and returns the unsubscribe function.
func (m *Metrics) Attach(src Source) func() {
	m.entries.Set(float64(len(src.Pages())))
	return src.OnAny(func(e *events.Event) bool {
		m.Observe(e)
		if e.Name == events.Navigate {
			m.entries.Set(float64(len(src.Pages())))
		}
		return false
	})
}

// Observe records a single event.
func (m *Metrics) Observe(e *events.Event) {
	if e == nil {
		return
	}
	if e.Name == events.Navigate {
		m.navigations.Inc()
		return
	}
	if e.Visit == nil {
		return
	}
	id := e.Visit.ID

	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Name {
	case events.Start:
		m.inflight[id] = &visitSample{started: time.Now()}
	case events.Progress:
		if s := m.inflight[id]; s != nil && e.Progress != nil && e.Progress.Loaded > s.uploaded {
			m.uploadBytes.Add(float64(e.Progress.Loaded - s.uploaded))
			s.uploaded = e.Progress.Loaded
		}
	case events.Success:
		m.setOutcome(id, OutcomeSuccess)
	case events.Error:
		m.setOutcome(id, OutcomeError)
	case events.Invalid:
		m.setOutcome(id, OutcomeInvalid)
	case events.Exception:
		m.exceptions.Inc()
		m.setOutcome(id, OutcomeException)
	case events.Cancel:
		m.cancellations.WithLabelValues(strconv.FormatBool(e.Visit.Interrupted)).Inc()
		m.setOutcome(id, OutcomeCancelled)
	case events.Finish:
		s := m.inflight[id]
		if s == nil {
			return
		}
		delete(m.inflight, id)
		method := strings.ToLower(e.Visit.Method)
		outcome := s.outcome
		if outcome == "" {
			outcome = OutcomeLeft
		}
		m.visitsTotal.WithLabelValues(method, outcome).Inc()
		m.visitDuration.WithLabelValues(method).Observe(time.Since(s.started).Seconds())
	}
}

// Inflight returns the number of started visits not yet finished.
func (m *Metrics) Inflight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

func (m *Metrics) setOutcome(id, outcome string) {
	if s := m.inflight[id]; s != nil && s.outcome == "" {
		s.outcome = outcome
	}
}
