// Package resilience provides circuit breaker and synthesis failover
// primitives.
//
// The central type is [CircuitBreaker], a classic three-state breaker
// (closed → open → half-open) that keeps a misbehaving synthesis backend from
// slowing every chunk fetch down to its timeout. [SynthesisFallback] composes
// multiple tts.Provider backends with per-entry breakers so a failing primary
// is bypassed in favour of healthy fallbacks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is
// open and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state. All calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped due to consecutive
	// failures. Calls are rejected with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A
	// single call is allowed through; on success the breaker closes, on
	// failure it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe call. Default: 30s.
	ResetTimeout time.Duration
}

// CircuitBreaker implements the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	probing         bool
}

// NewCircuitBreaker creates a [CircuitBreaker] with the supplied
// configuration. Zero-value config fields get sensible defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrCircuitOpen] without calling fn. In the half-open state exactly one
// probe call is in flight at a time.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = false
		slog.Info("circuit breaker transitioning to half-open", "name", cb.name)
		fallthrough

	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	inHalfOpen := cb.state == StateHalfOpen
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if inHalfOpen {
		cb.probing = false
		if err != nil {
			cb.lastFailure = time.Now()
			cb.state = StateOpen
			slog.Warn("circuit breaker re-opened from half-open", "name", cb.name)
		} else {
			cb.state = StateClosed
			cb.consecutiveFail = 0
			slog.Info("circuit breaker closed after successful probe", "name", cb.name)
		}
		return err
	}

	if err != nil {
		cb.lastFailure = time.Now()
		cb.consecutiveFail++
		if cb.consecutiveFail >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", cb.name,
				"consecutive_failures", cb.consecutiveFail)
		}
	} else {
		cb.consecutiveFail = 0
	}
	return err
}

// State returns the current [State] of the breaker. If the breaker is open
// and the reset timeout has elapsed, the returned state is [StateHalfOpen];
// the actual transition happens on the next [Execute] call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// failure counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.consecutiveFail = 0
	cb.probing = false
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
