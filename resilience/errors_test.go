package resilience

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"circuit open", ErrCircuitOpen, "resilience: circuit breaker is open"},
		{"retry exhausted", ErrRetryExhausted, "resilience: retry budget exhausted"},
		{"rate limit", ErrRateLimitExceeded, "resilience: rate limit exceeded"},
		{"bulkhead full", ErrBulkheadFull, "resilience: bulkhead at capacity"},
		{"timeout", ErrTimeout, "resilience: operation timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{
		ErrCircuitOpen,
		ErrRetryExhausted,
		ErrRateLimitExceeded,
		ErrBulkheadFull,
		ErrTimeout,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("Sentinel %v matches %v", a, b)
			}
		}
	}
}

func TestExhaustedError(t *testing.T) {
	cause := errors.New("upstream unavailable")
	err := &ExhaustedError{
		Attempts: 4,
		Elapsed:  250 * time.Millisecond,
		Err:      cause,
	}

	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("errors.Is(err, ErrRetryExhausted) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("ExhaustedError does not wrap its cause")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}

	var target *ExhaustedError
	wrapped := fmt.Errorf("call failed: %w", err)
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As through a wrapping layer failed")
	}
	if target.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", target.Attempts)
	}
}

func TestStatusError(t *testing.T) {
	cause := errors.New("model overloaded")
	err := NewStatusError(429, cause)

	if err.Code != 429 {
		t.Errorf("Code = %d, want 429", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("StatusError does not wrap its cause")
	}

	var target *StatusError
	if !errors.As(fmt.Errorf("request: %w", err), &target) {
		t.Fatal("errors.As failed")
	}
	if target.Code != 429 {
		t.Errorf("Code through wrapping = %d, want 429", target.Code)
	}
}

func TestStatusError_NilCause(t *testing.T) {
	err := NewStatusError(503, nil)

	if err.Error() == "" {
		t.Error("Error() is empty with nil cause")
	}
	if errors.Unwrap(err) != nil {
		t.Errorf("Unwrap() = %v, want nil", errors.Unwrap(err))
	}
}
