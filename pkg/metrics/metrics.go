// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks gateway HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total gateway HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total gateway HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendCallDuration tracks marketplace backend call latency.
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Marketplace backend call duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	// BackendCallsTotal tracks backend calls by outcome.
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Total marketplace backend calls",
		},
		[]string{"op", "outcome"},
	)

	// ReconcileTotal tracks session reconcile decisions.
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_reconcile_total",
			Help: "Session reconcile decisions",
		},
		[]string{"decision"},
	)

	// ProfileFetchTotal tracks background profile refresh outcomes.
	ProfileFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_profile_fetch_total",
			Help: "Profile refresh outcomes",
		},
		[]string{"outcome"},
	)

	// TradeTransitionsTotal tracks trade status transition requests.
	TradeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_transitions_total",
			Help: "Trade status transition requests",
		},
		[]string{"status", "outcome"},
	)

	// SessionSubscribers tracks active session change subscribers.
	SessionSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_subscribers_active",
			Help: "Number of active session change subscribers",
		},
	)
)

// RecordRequest records metrics for a gateway HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackendCall records metrics for a backend call.
func RecordBackendCall(op, outcome string, duration float64) {
	BackendCallDuration.WithLabelValues(op).Observe(duration)
	BackendCallsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordReconcile records a session reconcile decision.
func RecordReconcile(decision string) {
	ReconcileTotal.WithLabelValues(decision).Inc()
}

// RecordProfileFetch records a profile refresh outcome.
func RecordProfileFetch(outcome string) {
	ProfileFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordTradeTransition records a trade transition request outcome.
func RecordTradeTransition(status, outcome string) {
	TradeTransitionsTotal.WithLabelValues(status, outcome).Inc()
}
