// Package metrics exports Prometheus counters for weather resolutions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/briangreenhill/fetchweather/wttr"
)

const namespace = "fetchweather"

// Metrics holds the service collectors. Each instance owns its registry so
// several can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	Resolutions      *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram
}

// New creates the collectors. Pass withRuntime to also export process and
// Go runtime metrics.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Weather requests resolved, by source and format",
		}, []string{"source", "format"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Upstream failures answered with mock data, by error type",
		}, []string{"error_type"}),
		UpstreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Duration of requests to the weather service",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveResolution implements wttr.Recorder
func (m *Metrics) ObserveResolution(source wttr.Source, format wttr.Format) {
	m.Resolutions.WithLabelValues(string(source), string(format)).Inc()
}

// ObserveFallback implements wttr.Recorder
func (m *Metrics) ObserveFallback(errorType string) {
	m.Fallbacks.WithLabelValues(errorType).Inc()
}

// ObserveUpstream implements wttr.Recorder
func (m *Metrics) ObserveUpstream(d time.Duration) {
	m.UpstreamDuration.Observe(d.Seconds())
}

// Handler serves the registry for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ wttr.Recorder = (*Metrics)(nil)
