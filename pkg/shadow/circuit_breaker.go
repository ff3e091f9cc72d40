package shadow

import (
	"sync"
	"time"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF-OPEN"
)

// CircuitBreaker protects shadow execution from cascading failures,
// grounded on src/production/circuit_breaker.py: after failureThreshold
// consecutive failures it opens and rejects calls until recoveryTimeout has
// elapsed, then moves to half-open, where calls are allowed again; a
// success closes it and a failure reopens it.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	failures         int
	lastFailure      time.Time
	state            BreakerState
	clock            func() time.Time
}

// NewCircuitBreaker builds a CircuitBreaker with the given threshold and
// recovery timeout.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            BreakerClosed,
		clock:            time.Now,
	}
}

// WithClock overrides the breaker's clock, for deterministic tests.
func (b *CircuitBreaker) WithClock(clock func() time.Time) *CircuitBreaker {
	b.clock = clock
	return b
}

// Allow reports whether a call may proceed, transitioning OPEN -> HALF-OPEN
// once the recovery timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.clock().Sub(b.lastFailure) > b.recoveryTimeout {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess resets the failure count; a HALF-OPEN probe that succeeds
// closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
	}
	b.failures = 0
}

// RecordFailure increments the failure count and opens the breaker once
// failureThreshold consecutive failures have been observed.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.clock()
	if b.failures >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
