// Package resilience provides failure-isolation patterns for upstream
// quote and signal services.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // normal operation
	CircuitOpen     CircuitState = "OPEN"      // failing fast
	CircuitHalfOpen CircuitState = "HALF_OPEN" // probing for recovery
)

// ErrCircuitOpen is returned when the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the success count in half-open that closes it again.
	SuccessThreshold int
	// Timeout is how long an open circuit waits before probing.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults for a quote
// source polled every cycle.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	Name            string
	State           CircuitState
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejected   int64
	CurrentFailures int
	LastFailureTime time.Time
	LastStateChange time.Time
}

// FailureRate returns the failure rate as a percentage.
func (s CircuitBreakerStats) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests) * 100
}

// CircuitBreaker implements the circuit breaker pattern. While open, a
// call fails fast; the caller treats that the same as a transient fetch
// failure, so the polling cycle keeps its pace instead of stacking up
// timeouts against a dead upstream.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitState
	streak    int // consecutive failures while closed, successes while half-open
	lastFail  time.Time
	changedAt time.Time

	requests  int64
	successes int64
	failures  int64
	rejected  int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		cfg:       cfg,
		state:     CircuitClosed,
		changedAt: time.Now(),
	}
}

// Execute runs fn with circuit breaker protection.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := ExecuteWithResult(cb, ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteWithResult runs a result-returning function with circuit
// breaker protection. A context expiry counts as a failure.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T

	if !cb.admit() {
		return zero, ErrCircuitOpen
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		cb.settle(out.err)
		if out.err != nil {
			return zero, out.err
		}
		return out.value, nil
	case <-ctx.Done():
		cb.settle(ctx.Err())
		return zero, ctx.Err()
	}
}

// admit decides whether a call may proceed, counting it if so.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if time.Since(cb.lastFail) <= cb.cfg.Timeout {
			cb.rejected++
			return false
		}
		cb.shift(CircuitHalfOpen)
	}
	cb.requests++
	return true
}

func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFail = time.Now()
		switch cb.state {
		case CircuitClosed:
			cb.streak++
			if cb.streak >= cb.cfg.FailureThreshold {
				cb.shift(CircuitOpen)
			}
		case CircuitHalfOpen:
			// One failed probe is enough to reopen.
			cb.shift(CircuitOpen)
		}
		return
	}

	cb.successes++
	switch cb.state {
	case CircuitHalfOpen:
		cb.streak++
		if cb.streak >= cb.cfg.SuccessThreshold {
			cb.shift(CircuitClosed)
		}
	case CircuitClosed:
		cb.streak = 0
	}
}

func (cb *CircuitBreaker) shift(state CircuitState) {
	cb.state = state
	cb.streak = 0
	cb.changedAt = time.Now()
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset forces the circuit back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.shift(CircuitClosed)
}

// Stats returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := CircuitBreakerStats{
		Name:            cb.name,
		State:           cb.state,
		TotalRequests:   cb.requests,
		TotalSuccesses:  cb.successes,
		TotalFailures:   cb.failures,
		TotalRejected:   cb.rejected,
		LastFailureTime: cb.lastFail,
		LastStateChange: cb.changedAt,
	}
	if cb.state == CircuitClosed {
		stats.CurrentFailures = cb.streak
	}
	return stats
}
