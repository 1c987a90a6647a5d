package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products fetched and cached.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products fetched from Open Food Facts and cached",
	})

	// RatingsSubmitted is a Prometheus counter for tracking the total number of stored custom evaluations.
	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratings_submitted_total",
		Help: "The total number of custom evaluations stored",
	})

	// Lookups counts lookup flow results by outcome (hit, created, or an error kind).
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_lookups_total",
		Help: "The total number of product lookups by result",
	}, []string{"result"})

	// FlowErrors counts failed flows by flow name and error kind.
	FlowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_flow_errors_total",
		Help: "The total number of failed product flows by kind",
	}, []string{"flow", "kind"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openfoodfacts_request_duration_seconds",
		Help:    "Duration of Open Food Facts product requests by outcome",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	upstreamBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "openfoodfacts_circuit_breaker_state",
		Help: "Current state of the Open Food Facts circuit breaker (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
)

// ObserveUpstreamRequest records the duration of one Open Food Facts request.
func ObserveUpstreamRequest(outcome string, d time.Duration) {
	upstreamRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetUpstreamBreakerState records the circuit breaker state.
func SetUpstreamBreakerState(name string, state int) {
	upstreamBreakerState.WithLabelValues(name).Set(float64(state))
}
