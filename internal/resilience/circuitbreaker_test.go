package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failed")

func testBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          timeout,
	})
}

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(context.Background(), func() error { return errUpstream })
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := testBreaker(time.Minute)

	failN(cb, 2)
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %s before threshold, want CLOSED", cb.State())
	}

	failN(cb, 1)
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s after threshold, want OPEN", cb.State())
	}

	err := cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker returned %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := testBreaker(time.Millisecond)
	failN(cb, 3)

	time.Sleep(5 * time.Millisecond)

	// First allowed probe moves to half-open; two successes close it.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after recovery, want CLOSED", cb.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(time.Millisecond)
	failN(cb, 3)

	time.Sleep(5 * time.Millisecond)
	cb.Execute(context.Background(), func() error { return errUpstream })

	if cb.State() != CircuitOpen {
		t.Errorf("state = %s after half-open failure, want OPEN", cb.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Minute)

	failN(cb, 2)
	cb.Execute(context.Background(), func() error { return nil })
	failN(cb, 2)

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED (failures non-consecutive)", cb.State())
	}
}

func TestExecuteWithResultPassesValue(t *testing.T) {
	cb := testBreaker(time.Minute)

	got, err := ExecuteWithResult(cb, context.Background(), func() (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("got (%d, %v), want (42, nil)", got, err)
	}
}

func TestExecuteContextExpiryCountsAsFailure(t *testing.T) {
	cb := testBreaker(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	block := make(chan struct{})
	defer close(block)
	_, err := ExecuteWithResult(cb, ctx, func() (int, error) {
		<-block
		return 0, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if cb.Stats().TotalFailures != 1 {
		t.Errorf("failures = %d, want 1", cb.Stats().TotalFailures)
	}
}

func TestBreakerStats(t *testing.T) {
	cb := testBreaker(time.Minute)

	cb.Execute(context.Background(), func() error { return nil })
	failN(cb, 3)
	cb.Execute(context.Background(), func() error { return nil }) // rejected

	stats := cb.Stats()
	if stats.TotalRequests != 4 {
		t.Errorf("requests = %d, want 4", stats.TotalRequests)
	}
	if stats.TotalRejected != 1 {
		t.Errorf("rejected = %d, want 1", stats.TotalRejected)
	}
	if rate := stats.FailureRate(); rate != 75 {
		t.Errorf("failure rate = %.0f, want 75", rate)
	}
}

func TestBreakerReset(t *testing.T) {
	cb := testBreaker(time.Minute)
	failN(cb, 3)

	cb.Reset()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s after reset, want CLOSED", cb.State())
	}
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("call after reset failed: %v", err)
	}
}
