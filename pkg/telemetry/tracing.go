package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/navigare/pkg/events"
)

// Default tracer name for navigare visits.
const defaultTracerName = "navigare"

// TracingConfig configures visit tracing.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "navigare").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// IncludeData records the visit's query and property names as span
	// attributes. Disabled by default.
	IncludeData bool
}

// TracingOption configures visit tracing.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithIncludeData enables recording query strings and partial reload keys.
func WithIncludeData(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeData = include
	}
}

// Tracing opens a span at each visit's start event and ends it at finish.
// Lifecycle events in between become span events.
//
// The tracer uses the global OpenTelemetry tracer provider unless WithTracer
// is given. Configure the provider before attaching.
type Tracing struct {
	config TracingConfig

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTracing returns a Tracing configured by opts.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}
	return &Tracing{config: config, spans: make(map[string]trace.Span)}
}

// Attach subscribes t to src and returns the unsubscribe function.
func (t *Tracing) Attach(src Source) func() {
	return src.OnAny(func(e *events.Event) bool {
		t.Observe(e)
		return false
	})
}

// Observe records a single event.
func (t *Tracing) Observe(e *events.Event) {
	if e == nil || e.Visit == nil {
		return
	}
	v := e.Visit

	if e.Name == events.Start {
		attrs := []attribute.KeyValue{
			attribute.String("navigare.visit_id", v.ID),
			attribute.String("navigare.method", v.Method),
			attribute.String("navigare.path", v.Location.Pathname),
			attribute.Bool("navigare.background", v.Background),
			attribute.Bool("navigare.replace", v.Replace),
		}
		if t.config.IncludeData {
			attrs = append(attrs, attribute.String("navigare.query", v.Location.Search))
			if len(v.Properties) > 0 {
				attrs = append(attrs, attribute.StringSlice("navigare.properties", v.Properties))
			}
		}
		_, span := t.config.Tracer.Start(
			context.Background(),
			"navigare.visit "+v.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		t.mu.Lock()
		t.spans[v.ID] = span
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	span := t.spans[v.ID]
	if e.Name == events.Finish {
		delete(t.spans, v.ID)
	}
	t.mu.Unlock()
	if span == nil {
		return
	}

	switch e.Name {
	case events.Progress:
		if e.Progress != nil {
			span.AddEvent("progress", trace.WithAttributes(
				attribute.Int64("navigare.loaded", e.Progress.Loaded),
				attribute.Int64("navigare.total", e.Progress.Total),
			))
		}
	case events.Navigate:
		span.AddEvent("navigate")
	case events.Success:
		span.SetStatus(codes.Ok, "")
	case events.Error:
		span.SetAttributes(attribute.Int("navigare.error_count", len(e.Errors)))
		span.SetStatus(codes.Error, "validation errors")
	case events.Invalid:
		if e.Response != nil {
			span.SetAttributes(attribute.Int("navigare.status", e.Response.Status))
		}
		span.SetStatus(codes.Error, "invalid response")
	case events.Exception:
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
	case events.Cancel:
		span.SetAttributes(attribute.Bool("navigare.interrupted", v.Interrupted))
		span.AddEvent("cancel")
	case events.Finish:
		span.SetAttributes(
			attribute.Bool("navigare.completed", v.Completed),
			attribute.Bool("navigare.cancelled", v.Cancelled),
		)
		span.End()
	}
}

// Open returns the number of spans not yet ended.
func (t *Tracing) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}
