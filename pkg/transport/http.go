package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "navigare"

// HTTP is the net/http Transport.
type HTTP struct {
	client *http.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithClient sets the underlying client.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) {
		t.client = c
	}
}

// WithTimeout sets a per-request timeout on the default client. The router
// itself never times visits out.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		t.client = &http.Client{Timeout: d}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tr trace.Tracer) Option {
	return func(t *HTTP) {
		t.tracer = tr
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTP) {
		t.logger = l
	}
}

// NewHTTP returns an HTTP transport. Without options it uses a plain
// http.Client and the global tracer provider.
func NewHTTP(opts ...Option) *HTTP {
	t := &HTTP{
		client: &http.Client{},
		tracer: otel.Tracer(defaultTracerName),
		logger: slog.Default().With("component", "transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends req and reads the whole response body.
func (t *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := t.tracer.Start(ctx, "navigare.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL),
		),
	)
	defer span.End()

	var body io.Reader
	if len(req.Body.Data) > 0 {
		body = bytes.NewReader(req.Body.Data)
		if req.OnProgress != nil {
			body = &progressReader{r: body, total: int64(len(req.Body.Data)), fn: req.OnProgress}
		}
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header = headers(req)
	if body != nil {
		hreq.ContentLength = int64(len(req.Body.Data))
	}

	t.logger.Debug("request", "method", req.Method, "url", req.URL)

	hres, err := t.client.Do(hreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer hres.Body.Close()

	data, err := io.ReadAll(hres.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read response: %w", err)
	}

	res := &Response{
		Status: hres.StatusCode,
		Header: hres.Header,
		Body:   data,
		URL:    hres.Request.URL.String(),
	}
	span.SetAttributes(
		attribute.Int("http.status_code", res.Status),
		attribute.String("navigare.response_kind", res.Kind().String()),
	)
	if res.Status >= 500 {
		span.SetStatus(codes.Error, http.StatusText(res.Status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return res, nil
}

// progressReader reports bytes consumed from r.
type progressReader struct {
	r     io.Reader
	total int64
	read  atomic.Int64
	fn    func(loaded, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(p.read.Add(int64(n)), p.total)
	}
	return n, err
}

// Percentage returns loaded/total as a whole percentage.
func Percentage(loaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(loaded) / float64(total) * 100)
}
