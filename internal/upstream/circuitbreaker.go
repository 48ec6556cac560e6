package upstream

import (
	"sync"
	"time"
)

type cbState int

const (
	cbClosed cbState = iota
	cbOpen
	cbHalfOpen
)

func (s cbState) String() string {
	switch s {
	case cbOpen:
		return "open"
	case cbHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker fails calls fast after consecutive transport failures.
// Once the recovery window has passed a single trial call is let through;
// its outcome closes or reopens the breaker.
type CircuitBreaker struct {
	threshold       int
	recoveryTimeout time.Duration
	now             func() time.Time

	state         cbState
	failures      int
	probing       bool
	lastFailureAt time.Time
	mu            sync.Mutex
}

// NewCircuitBreaker creates a new CircuitBreaker
func NewCircuitBreaker(threshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		threshold:       threshold,
		recoveryTimeout: recoveryTimeout,
		now:             time.Now,
		state:           cbClosed,
	}
}

// AllowRequest returns true if a call should be attempted
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case cbOpen:
		if cb.now().Sub(cb.lastFailureAt) < cb.recoveryTimeout {
			return false
		}
		cb.state = cbHalfOpen
		cb.probing = true
		return true
	case cbHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// RecordSuccess records a call the node answered
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = cbClosed
	cb.failures = 0
	cb.probing = false
}

// RecordFailure records a failed call and returns true if it opened the breaker
func (cb *CircuitBreaker) RecordFailure() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureAt = cb.now()

	switch cb.state {
	case cbClosed:
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.state = cbOpen
			return true
		}
	case cbHalfOpen:
		cb.state = cbOpen
		cb.probing = false
		return true
	}
	return false
}

// State returns the current state name
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}
