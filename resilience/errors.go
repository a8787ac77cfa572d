package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker refuses admission.
	// The operation is never invoked.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the rate limiter rejects a call
	// under PolicyReject.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrRetryExhausted matches any *ExhaustedError via errors.Is.
	ErrRetryExhausted = errors.New("resilience: retry budget exhausted")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// ExhaustedError is returned by Retry.Execute when the attempt or elapsed-time
// budget runs out. It wraps the last error produced by the operation so the
// exhaustion condition is never conflated with the underlying remote failure.
type ExhaustedError struct {
	// Attempts is the number of invocations made before giving up.
	Attempts int

	// Elapsed is the wall-clock time spent across all attempts and backoffs.
	Elapsed time.Duration

	// Err is the last error returned by the operation.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: retry budget exhausted after %d attempts in %s: %v",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

// Unwrap returns the last underlying error for diagnostics.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Is reports a match for ErrRetryExhausted, so callers can detect exhaustion
// without losing the wrapped cause.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// StatusError carries a provider HTTP status code through an error chain so
// the StatusClassifier can map it onto the error taxonomy. Provider adapters
// wrap their transport errors in a StatusError; the resilience layer never
// inspects response bodies.
type StatusError struct {
	// Code is the HTTP status code returned by the provider.
	Code int

	// Err is the underlying error, if any.
	Err error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resilience: provider returned status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("resilience: provider returned status %d", e.Code)
}

// Unwrap returns the underlying transport error.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with the provider's HTTP status code.
func NewStatusError(code int, err error) *StatusError {
	return &StatusError{Code: code, Err: err}
}
