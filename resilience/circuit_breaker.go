// Package resilience provides fault tolerance patterns for calls to the
// remote catalog backend: retry with exponential backoff and a circuit
// breaker that fails fast when the backend is unhealthy.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// CircuitState represents the circuit breaker state
type CircuitState int

const (
	// StateClosed allows all requests through (normal operation)
	StateClosed CircuitState = iota
	// StateOpen rejects all requests immediately
	StateOpen
	// StateHalfOpen allows limited requests to probe recovery
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// CircuitBreakerConfig configures a circuit breaker
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the circuit
	Threshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// HalfOpenRequests is how many probe requests are allowed half-open
	HalfOpenRequests int
}

// DefaultCircuitBreakerConfig provides sensible defaults
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Threshold:        5,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 3,
	}
}

// CircuitBreaker protects the backend from cascading failures by
// temporarily blocking requests after a threshold of consecutive
// failures. Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	name   string
	config CircuitBreakerConfig
	logger core.Logger

	state            CircuitState
	failures         int
	halfOpenInFlight int
	halfOpenSuccess  int
	openedAt         time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given name.
func NewCircuitBreaker(name string, config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{
		name:   name,
		config: *config,
		logger: &core.NoOpLogger{},
		state:  StateClosed,
	}
}

// SetLogger configures the logger for circuit breaker state transitions.
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	if logger != nil {
		cb.mu.Lock()
		cb.logger = logger
		cb.mu.Unlock()
	}
}

// Execute runs fn with circuit breaker protection. When the circuit is
// open, core.ErrCircuitBreakerOpen is returned without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.CanExecute() {
		return core.ErrCircuitBreakerOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// CanExecute returns true if the circuit breaker would allow execution.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.Timeout {
			cb.transition(StateHalfOpen)
			cb.halfOpenInFlight = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenInFlight < cb.config.HalfOpenRequests {
			cb.halfOpenInFlight++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.config.HalfOpenRequests {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.Threshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A single probe failure re-opens the circuit
		cb.transition(StateOpen)
	}
}

// GetState returns the current state as a string.
func (cb *CircuitBreaker) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}

// GetMetrics returns current metrics about the circuit breaker.
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"name":     cb.name,
		"state":    cb.state.String(),
		"failures": cb.failures,
	}
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

// transition moves to a new state. Caller must hold cb.mu.
func (cb *CircuitBreaker) transition(newState CircuitState) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	switch newState {
	case StateClosed:
		cb.failures = 0
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccess = 0
	case StateOpen:
		cb.openedAt = time.Now()
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccess = 0
	case StateHalfOpen:
		cb.halfOpenSuccess = 0
	}

	cb.logger.Info("Circuit breaker state change", map[string]interface{}{
		"name": cb.name,
		"from": oldState.String(),
		"to":   newState.String(),
	})
}
