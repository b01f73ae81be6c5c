// Package metrics exposes Prometheus instrumentation for the bridge,
// grounded on the prometheus/client_golang registration pattern used across
// the retrieved pack (GriffinCanCode-ArtificialOS, odvcencio-buckley,
// watzon-alyx all register a promhttp handler the same way).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters/gauges/histogram the bridge and server touch.
type Metrics struct {
	InvocationsTotal  *prometheus.CounterVec
	InFlightInvokes   prometheus.Gauge
	InvokeLatencySecs prometheus.Histogram
	SessionsCreated   prometheus.Counter
	SessionsReleased  prometheus.Counter
}

// New registers and returns a fresh Metrics set against its own registry, so
// multiple Bridge instances in tests don't collide on the default registry.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		InvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bb_functions_invocations_total",
			Help: "Total number of completed invocations, by outcome.",
		}, []string{"outcome"}),
		InFlightInvokes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bb_functions_invocations_in_flight",
			Help: "Number of invocations currently in flight (0 or 1).",
		}),
		InvokeLatencySecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bb_functions_invoke_latency_seconds",
			Help:    "End-to-end latency of external invoke requests.",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bb_functions_sessions_created_total",
			Help: "Total number of browser sessions created.",
		}),
		SessionsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "bb_functions_sessions_released_total",
			Help: "Total number of browser sessions released.",
		}),
	}, reg
}

// Handler returns the promhttp handler for reg, to be mounted at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
