// Package metrics exposes the Prometheus signals SPEC_FULL §1.1 names as
// intersecting the core: circuit-breaker state transitions, loader batch
// sizes, and query-complexity/depth rejections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric this subgraph registers, constructed once
// at C0 bootstrap. The circuit-breaker metrics are recorded by the
// OnStateChange hook wired in cmd/ugc-subgraph and the two server metrics
// by the Backpressure middleware; no component records LoaderBatchSize or
// QueryGateRejections.
type Registry struct {
	CircuitBreakerState   *prometheus.GaugeVec
	CircuitBreakerTrips   *prometheus.CounterVec
	LoaderBatchSize       *prometheus.HistogramVec
	QueryGateRejections   *prometheus.CounterVec
	InflightRequests      prometheus.Gauge
	RateLimitedRequests   prometheus.Counter
}

// NewRegistry registers every metric against reg (pass
// prometheus.NewRegistry() in tests, prometheus.DefaultRegisterer in
// production so promhttp.Handler() picks it up).
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "sibling_client",
			Name:      "circuit_breaker_state",
			Help:      "Current gobreaker state per sibling (0=closed, 1=half-open, 2=open).",
		}, []string{"sibling"}),
		CircuitBreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "sibling_client",
			Name:      "circuit_breaker_trips_total",
			Help:      "Count of transitions into the open state per sibling.",
		}, []string{"sibling"}),
		LoaderBatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "loader",
			Name:      "batch_size",
			Help:      "Number of keys coalesced into a single loader batch.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"loader"}),
		QueryGateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "graphapi",
			Name:      "query_gate_rejections_total",
			Help:      "Queries rejected by the pre-execution complexity/depth gate.",
		}, []string{"reason"}),
		InflightRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "server",
			Name:      "inflight_requests",
			Help:      "Requests currently admitted past the backpressure gate.",
		}),
		RateLimitedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ugc_subgraph",
			Subsystem: "server",
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected with 429 by the inbound rate limiter.",
		}),
	}
}

// CircuitState maps gobreaker.State to the numeric gauge value recorded
// by OnStateChange hooks (see the internal/siblingclient.Config.Breaker
// OnStateChange wiring in cmd/ugc-subgraph).
func CircuitState(name string) float64 {
	switch name {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
