package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesStarted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ebike", Name: "rides_started_total", Help: "Rides that entered the in-ride state"})
	RidesEnded   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ebike", Name: "rides_ended_total", Help: "Rides that reached the summary"})
	RidePauses   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ebike", Name: "ride_auto_pauses_total", Help: "Idle auto-pause transitions"})
	AccrualTicks = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ebike", Name: "accrual_ticks_total", Help: "Accrual ticks processed"})
	RideActive   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ebike", Name: "ride_active", Help: "1 while a ride session is live"})
	RideCost     = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ebike",
		Name:      "ride_cost",
		Help:      "Settled ride cost in currency units",
		Buckets:   []float64{5, 10, 25, 50, 100, 250},
	})

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "state_transitions_total", Help: "Engine state transitions"},
		[]string{"from", "to"},
	)
	StaleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "stale_results_total", Help: "Async results dropped because their request was superseded"},
		[]string{"call"},
	)
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "backend_calls_total", Help: "Backend calls by outcome"},
		[]string{"call", "outcome"},
	)
	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "payments_total", Help: "Payment attempts by outcome"},
		[]string{"outcome"},
	)
	LedgerWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "ledger_writes_total", Help: "Settled rides written by the consumer"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ebike", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ebike",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome labels a call result for the *_total vectors.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
