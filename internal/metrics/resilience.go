// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerStates = []string{"closed", "open", "half-open"}

var (
	// CircuitBreakerState is 1 for the breaker's current state and 0 for the others.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hdmerge_circuit_breaker_state",
		Help: "Circuit breaker state (1 = active), by breaker and state.",
	}, []string{"breaker", "state"})

	// CircuitBreakerTrips counts transitions into the open state.
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_circuit_breaker_trips_total",
		Help: "Circuit breaker trips, by breaker and reason.",
	}, []string{"breaker", "reason"})

	// RateLimitedTotal counts requests rejected by a limiter.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_rate_limited_total",
		Help: "Requests rejected by a rate limiter, by scope.",
	}, []string{"scope"})
)

// SetCircuitBreakerState marks state as the active state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		CircuitBreakerState.WithLabelValues(breaker, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts one trip of breaker.
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTrips.WithLabelValues(breaker, reason).Inc()
}

// IncRateLimited counts one rejected request.
func IncRateLimited(scope string) {
	RateLimitedTotal.WithLabelValues(scope).Inc()
}
