package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

func testBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("backend", &CircuitBreakerConfig{
		Threshold:        3,
		Timeout:          timeout,
		HalfOpenRequests: 2,
	})
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := testBreaker(time.Hour)

	for i := 0; i < 3; i++ {
		if cb.GetState() != "closed" {
			t.Fatalf("state before failure %d = %s", i, cb.GetState())
		}
		cb.RecordFailure()
	}

	if cb.GetState() != "open" {
		t.Fatalf("state = %s, want open", cb.GetState())
	}
	if cb.CanExecute() {
		t.Error("open circuit should reject execution")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Hour)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != "closed" {
		t.Fatalf("state = %s, want closed after interleaved success", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	time.Sleep(20 * time.Millisecond)

	// first request after the timeout is the probe
	if !cb.CanExecute() {
		t.Fatal("expected probe to be allowed after timeout")
	}
	if cb.GetState() != "half-open" {
		t.Fatalf("state = %s, want half-open", cb.GetState())
	}

	// enough successful probes close the circuit
	cb.RecordSuccess()
	if !cb.CanExecute() {
		t.Fatal("second probe should be allowed")
	}
	cb.RecordSuccess()

	if cb.GetState() != "closed" {
		t.Fatalf("state = %s, want closed after successful probes", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	time.Sleep(20 * time.Millisecond)

	if !cb.CanExecute() {
		t.Fatal("expected probe to be allowed")
	}
	cb.RecordFailure()

	if cb.GetState() != "open" {
		t.Fatalf("state = %s, want open after probe failure", cb.GetState())
	}
}

func TestCircuitBreakerExecute(t *testing.T) {
	cb := testBreaker(time.Hour)
	ctx := context.Background()

	failing := errors.New("backend down")
	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, func() error { return failing }); !errors.Is(err, failing) {
			t.Fatalf("error = %v, want backend down", err)
		}
	}

	// circuit now open: fn must not run
	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	if !errors.Is(err, core.ErrCircuitBreakerOpen) {
		t.Fatalf("error = %v, want ErrCircuitBreakerOpen", err)
	}
	if called {
		t.Error("fn ran while circuit was open")
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := testBreaker(time.Hour)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	cb.Reset()

	if cb.GetState() != "closed" {
		t.Fatalf("state = %s, want closed after reset", cb.GetState())
	}
	if !cb.CanExecute() {
		t.Error("reset circuit should allow execution")
	}
}
