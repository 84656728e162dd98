package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test"})

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Error("fn was not called in closed state")
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v; want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute = %v; want boom", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v; want open", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("fn should not run while breaker is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute = %v; want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 2})

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return boom })

	if cb.State() != StateClosed {
		t.Errorf("state = %v; want closed (failures interleaved with success)", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeClosesOnSuccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("state = %v; want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v; want half-open after reset timeout", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe Execute: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v; want closed after successful probe", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeReopensOnFailure(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	boom := errors.New("still broken")
	if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("probe Execute = %v; want still broken", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("state = %v; want open after failed probe", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatalf("state = %v; want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state = %v; want closed after Reset", cb.State())
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q; want %q", state, got, want)
		}
	}
}
