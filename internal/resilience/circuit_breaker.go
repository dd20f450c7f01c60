// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience guards calls to flaky upstreams.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/hdmerge/internal/metrics"
)

// State is the breaker position as reported to health checks and metrics.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// errPanicked stands in for the outcome of a call that panicked.
var errPanicked = errors.New("call panicked")

// CircuitBreaker opens after threshold consecutive counted failures and
// rejects calls until the reset timeout has passed. Then exactly one probe is
// admitted (half-open) and its outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	name      string
	threshold int
	reset     time.Duration
	now       func() time.Time
	counts    func(error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithNow replaces the clock.
func WithNow(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithFailureFilter decides which errors count against the upstream. Errors
// it rejects, such as a malformed identifier, pass through without touching
// the state.
func WithFailureFilter(counts func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.counts = counts }
}

// NewCircuitBreaker creates a closed breaker. name labels its metrics.
// Non-positive threshold and reset fall back to 3 and 30s.
func NewCircuitBreaker(name string, threshold int, reset time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:      name,
		threshold: max(threshold, 0),
		reset:     reset,
		now:       time.Now,
		counts:    func(error) bool { return true },
		state:     StateClosed,
	}
	if cb.threshold == 0 {
		cb.threshold = 3
	}
	if cb.reset <= 0 {
		cb.reset = 30 * time.Second
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(name, string(StateClosed))
	return cb
}

// Execute runs fn unless the circuit rejects it with ErrCircuitOpen. A panic
// in fn counts as a failure and is re-raised.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := Do(cb, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// Do is Execute for calls that return a value.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (v T, err error) {
	probe, err := cb.admit()
	if err != nil {
		return v, err
	}

	settled := false
	defer func() {
		if !settled {
			cb.settle(probe, errPanicked)
		}
	}()

	v, err = fn()
	settled = true
	cb.settle(probe, err)
	return v, err
}

// State returns the current position. An open breaker whose timeout has
// elapsed still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.reset {
			return false, ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.probing {
		return false, ErrCircuitOpen
	}
	cb.probing = true
	return true, nil
}

func (cb *CircuitBreaker) settle(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
	}
	switch {
	case err == nil:
		cb.failures = 0
		cb.moveTo(StateClosed)
	case !cb.counts(err):
		// Not the upstream's fault. A probe slot was released above.
	case cb.state == StateHalfOpen:
		cb.failures++
		metrics.RecordCircuitBreakerTrip(cb.name, "half_open_failure")
		cb.moveTo(StateOpen)
	default:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.threshold {
			metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
			cb.moveTo(StateOpen)
		}
	}
}

// moveTo requires cb.mu.
func (cb *CircuitBreaker) moveTo(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if s == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(s))
}
