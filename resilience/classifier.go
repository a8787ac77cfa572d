package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classifier maps errors produced by a remote operation onto the two
// decisions the resilience layer needs: whether an attempt is worth
// repeating, and whether the failure says anything about the health of the
// remote dependency.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: both methods must return false for nil errors and must not panic.
// - Stability: classification of a given error value must be deterministic;
//   the breaker and retry executor classify each attempt exactly once.
type Classifier interface {
	// IsRetryable reports whether the operation may be invoked again after
	// this error. Terminal errors (malformed request, authentication failure)
	// return false.
	IsRetryable(err error) bool

	// IsCircuitFailure reports whether this error counts toward circuit
	// breaker health. Throttling responses return false: they reflect
	// client-side pacing, not an unhealthy dependency.
	IsCircuitFailure(err error) bool
}

// ClassifierFunc adapts two predicates into a Classifier. A nil predicate
// defaults to "true for any non-nil error".
type ClassifierFunc struct {
	Retryable      func(err error) bool
	CircuitFailure func(err error) bool
}

// IsRetryable invokes the Retryable predicate.
func (c ClassifierFunc) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if c.Retryable == nil {
		return true
	}
	return c.Retryable(err)
}

// IsCircuitFailure invokes the CircuitFailure predicate.
func (c ClassifierFunc) IsCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	if c.CircuitFailure == nil {
		return true
	}
	return c.CircuitFailure(err)
}

// DefaultClassifier treats every non-nil error as both retryable and a
// circuit failure. It is the fallback when no classifier is configured.
func DefaultClassifier() Classifier {
	return ClassifierFunc{}
}

// StatusClassifier classifies provider errors by HTTP status and transport
// failure mode:
//
//   - Transient (network error, timeout, 408, 5xx): retryable and counted as
//     a circuit failure.
//   - Overload (429): retryable but never counted as a circuit failure.
//   - Client error (other 4xx): terminal, never retried, never counted.
//
// Errors that carry no status (plain transport failures, ErrTimeout,
// context.DeadlineExceeded, net.Error timeouts) are treated as transient.
// context.Canceled is the caller abandoning the call: not retryable, and not
// held against the dependency.
type StatusClassifier struct{}

// IsRetryable implements Classifier.
func (StatusClassifier) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if isTimeout(err) {
		return true
	}
	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			return true
		case code == http.StatusRequestTimeout:
			return true
		case code >= 500:
			return true
		case code >= 400:
			return false
		}
	}
	return true
}

// IsCircuitFailure implements Classifier.
func (StatusClassifier) IsCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if isTimeout(err) {
		return true
	}
	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			return false
		case code == http.StatusRequestTimeout:
			return true
		case code >= 500:
			return true
		case code >= 400:
			return false
		}
	}
	// No status attached: plain transport failures indicate an unhealthy
	// dependency.
	return true
}

// statusCode extracts an HTTP status from the error chain, if one is present.
func statusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// isTimeout reports whether err is a deadline-style failure from any layer.
func isTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
