package telemetry

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/history"
	"github.com/vango-dev/navigare/pkg/navtest"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/router"
	"github.com/vango-dev/navigare/pkg/transport"
)

// scripted serves protocol pages for every path except a few that fail in
// the ways the router distinguishes.
func scripted(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	switch {
	case strings.HasSuffix(req.URL, "/boom"):
		return nil, stderrors.New("connection refused")
	case strings.HasSuffix(req.URL, "/plain"):
		return &transport.Response{Status: http.StatusInternalServerError, Body: []byte("<h1>oops</h1>")}, nil
	}
	b := navtest.NewPage(req.URL).Fragment("main", "page", nil)
	if req.Method == http.MethodPost {
		b.Errors(map[string]any{"name": "required"})
	}
	body, _ := page.Encode(b.Build())
	return &transport.Response{
		Status: http.StatusOK,
		Header: http.Header{transport.HeaderProtocol: {"true"}},
		Body:   body,
	}, nil
}

func newRouter(t *testing.T) *router.Router {
	t.Helper()
	initial := navtest.NewPage("https://app.test/").Fragment("main", "home", nil).Build()
	r, err := router.New(initial,
		router.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		router.WithPort(history.NewMemoryPort("https://app.test/")),
		router.WithTransport(transport.Func(scripted)),
	)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	t.Cleanup(r.Wait)
	return r
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	r := newRouter(t)
	defer m.Attach(r)()

	ctx := context.Background()
	r.Visit(ctx, "/a")
	r.Visit(ctx, "/b")
	r.Post(ctx, "/form", map[string]any{"name": ""})
	r.Visit(ctx, "/plain")
	r.Visit(ctx, "/boom")

	cases := []struct {
		method, outcome string
		want            float64
	}{
		{"get", OutcomeSuccess, 2},
		{"post", OutcomeError, 1},
		{"get", OutcomeInvalid, 1},
		{"get", OutcomeException, 1},
	}
	for _, tc := range cases {
		got := testutil.ToFloat64(m.visitsTotal.WithLabelValues(tc.method, tc.outcome))
		if got != tc.want {
			t.Errorf("visits_total{%s,%s} = %v, want %v", tc.method, tc.outcome, got, tc.want)
		}
	}
	if got := testutil.ToFloat64(m.exceptions); got != 1 {
		t.Errorf("exceptions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.navigations); got != 3 {
		t.Errorf("navigations_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.entries); got != float64(len(r.Pages())) {
		t.Errorf("history_entries = %v, want %d", got, len(r.Pages()))
	}
	if got := testutil.CollectAndCount(m.visitDuration); got != 2 {
		t.Errorf("visit_duration_seconds series = %d, want 2", got)
	}
	if m.Inflight() != 0 {
		t.Errorf("Inflight() = %d, want 0", m.Inflight())
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "test_visits_total" {
			found = true
		}
	}
	if !found {
		t.Error("test_visits_total not registered")
	}
}

func TestMetricsCountInterruptions(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	v := &page.Visit{ID: "v1", Method: "GET"}

	m.Observe(events.New(events.Start).WithVisit(v))
	cancelled := v.Clone()
	cancelled.Cancelled = true
	cancelled.Interrupted = true
	m.Observe(events.New(events.Cancel).WithVisit(cancelled))
	m.Observe(events.New(events.Finish).WithVisit(cancelled))

	if got := testutil.ToFloat64(m.cancellations.WithLabelValues("true")); got != 1 {
		t.Errorf("visit_cancellations_total{interrupted=true} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.visitsTotal.WithLabelValues("get", OutcomeCancelled)); got != 1 {
		t.Errorf("visits_total{get,cancelled} = %v, want 1", got)
	}
}

func TestMetricsUploadBytesAreDeltas(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	v := &page.Visit{ID: "v1", Method: "POST"}

	m.Observe(events.New(events.Start).WithVisit(v))
	for _, loaded := range []int64{10, 40, 40, 100} {
		e := events.New(events.Progress).WithVisit(v)
		e.Progress = &events.UploadProgress{Loaded: loaded, Total: 100}
		m.Observe(e)
	}
	if got := testutil.ToFloat64(m.uploadBytes); got != 100 {
		t.Errorf("upload_bytes_total = %v, want 100", got)
	}
}

func TestMetricsFinishWithoutOutcome(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	v := &page.Visit{ID: "v1", Method: "GET"}

	m.Observe(events.New(events.Start).WithVisit(v))
	m.Observe(events.New(events.Finish).WithVisit(v))
	// A second finish for the same visit is ignored.
	m.Observe(events.New(events.Finish).WithVisit(v))

	if got := testutil.ToFloat64(m.visitsTotal.WithLabelValues("get", OutcomeLeft)); got != 1 {
		t.Errorf("visits_total{get,left} = %v, want 1", got)
	}
}

// recordingTracer hands out spans that remember how they ended.
type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordingSpan
}

func (rt *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recordingSpan{name: name}
	rt.mu.Lock()
	rt.spans = append(rt.spans, s)
	rt.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordingSpan struct {
	noop.Span
	name   string
	ended  bool
	status codes.Code
	events []string
	errs   []error
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func TestTracingSpanPerVisit(t *testing.T) {
	rt := &recordingTracer{}
	tr := NewTracing(WithTracer(rt))
	r := newRouter(t)
	defer tr.Attach(r)()

	ctx := context.Background()
	r.Visit(ctx, "/a")
	r.Visit(ctx, "/boom")

	if len(rt.spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(rt.spans))
	}
	ok, failed := rt.spans[0], rt.spans[1]
	if ok.name != "navigare.visit GET" {
		t.Errorf("span name = %q, want navigare.visit GET", ok.name)
	}
	if !ok.ended || ok.status != codes.Ok {
		t.Errorf("success span ended=%v status=%v", ok.ended, ok.status)
	}
	if len(ok.events) != 1 || ok.events[0] != "navigate" {
		t.Errorf("success span events = %v, want [navigate]", ok.events)
	}
	if !failed.ended || failed.status != codes.Error || len(failed.errs) != 1 {
		t.Errorf("exception span ended=%v status=%v errs=%v", failed.ended, failed.status, failed.errs)
	}
	if tr.Open() != 0 {
		t.Errorf("Open() = %d, want 0", tr.Open())
	}
}

func TestTracingIgnoresUnknownVisits(t *testing.T) {
	tr := NewTracing(WithTracer(noop.NewTracerProvider().Tracer("test")))
	tr.Observe(events.New(events.Finish).WithVisit(&page.Visit{ID: "missing"}))
	tr.Observe(events.New(events.Navigate))
	tr.Observe(nil)
	if tr.Open() != 0 {
		t.Errorf("Open() = %d, want 0", tr.Open())
	}
}
