// Package telemetry observes a router through its event stream.
//
// Metrics records Prometheus counters and histograms for visits, and
// Tracing opens one OpenTelemetry span per visit. Both attach as wildcard
// listeners and never stop propagation:
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	defer m.Attach(r)()
//
//	tr := telemetry.NewTracing()
//	defer tr.Attach(r)()
package telemetry

import (
	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/page"
)

// Source is the part of a router telemetry listens to.
type Source interface {
	OnAny(fn events.Handler) func()
	Pages() []*page.Page
}
