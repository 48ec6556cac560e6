package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"

	"contractcache/internal/contract"
)

var (
	// ErrUnsupportedFunction is returned before any network call for a function outside the whitelist
	ErrUnsupportedFunction = errors.New("unsupported function")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// UpstreamError is a failed call: transport, timeout, node error or undecodable result
type UpstreamError struct {
	Function contract.Function
	Address  string
	Cause    error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Function, e.Address, e.Cause)
}

// Unwrap returns the underlying cause
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the call ran out of time
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}
