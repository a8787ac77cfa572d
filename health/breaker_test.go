package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/callguard/resilience"
)

// TestBreakerChecker_Closed verifies a closed circuit reports healthy.
func TestBreakerChecker_Closed(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
	})
	breaker.RecordSuccess()
	breaker.RecordSuccess()

	checker := NewBreakerChecker("openai", breaker)

	if checker.Name() != "breaker:openai" {
		t.Errorf("expected name breaker:openai, got %s", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", result.Status)
	}
	if result.Details["state"] != "closed" {
		t.Errorf("expected state detail closed, got %v", result.Details["state"])
	}
	if result.Details["total_requests"].(uint64) != 2 {
		t.Errorf("expected 2 total requests, got %v", result.Details["total_requests"])
	}
}

// TestBreakerChecker_Open verifies a tripped circuit reports unhealthy with
// the circuit-open error attached.
func TestBreakerChecker_Open(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      time.Hour,
	})
	breaker.RecordFailure(errors.New("provider down"))

	checker := NewBreakerChecker("openai", breaker)
	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", result.Status)
	}
	if !errors.Is(result.Error, resilience.ErrCircuitOpen) {
		t.Errorf("expected circuit open error, got %v", result.Error)
	}
	if result.Details["trip_count"].(uint64) != 1 {
		t.Errorf("expected trip count 1, got %v", result.Details["trip_count"])
	}
	if _, ok := result.Details["opened_at"]; !ok {
		t.Error("expected opened_at detail on open circuit")
	}
}

// TestBreakerChecker_HalfOpen verifies a probing circuit reports degraded.
func TestBreakerChecker_HalfOpen(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
	})
	breaker.RecordFailure(errors.New("provider down"))

	time.Sleep(20 * time.Millisecond)
	if !breaker.CanExecute() {
		t.Fatal("expected probe admission after open timeout")
	}

	checker := NewBreakerChecker("openai", breaker)
	result := checker.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", result.Status)
	}
	if result.Details["state"] != "half-open" {
		t.Errorf("expected state detail half-open, got %v", result.Details["state"])
	}
}

// TestBreakerChecker_NilBreaker verifies a missing breaker is unhealthy, not
// a panic.
func TestBreakerChecker_NilBreaker(t *testing.T) {
	checker := NewBreakerChecker("openai", nil)
	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", result.Status)
	}
}

// TestBreakerChecker_ContextCancelled verifies cancellation short-circuits
// the check.
func TestBreakerChecker_ContextCancelled(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	checker := NewBreakerChecker("openai", breaker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := checker.Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy on cancelled context, got %s", result.Status)
	}
	if !errors.Is(result.Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", result.Error)
	}
}

// TestBreakerChecker_Info verifies the info map carries the breaker counters.
func TestBreakerChecker_Info(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	breaker.RecordSuccess()

	checker := NewBreakerChecker("openai", breaker)
	info, err := checker.Info(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info["state"] != "closed" {
		t.Errorf("expected state closed, got %v", info["state"])
	}
}

// TestLimiterChecker_Healthy verifies a full token bucket reports healthy.
func TestLimiterChecker_Healthy(t *testing.T) {
	limiter := resilience.NewTokenBucket(resilience.TokenBucketConfig{
		Rate:  100,
		Burst: 10,
	})

	checker := NewLimiterChecker("openai", limiter, LimiterCheckerConfig{})

	if checker.Name() != "limiter:openai" {
		t.Errorf("expected name limiter:openai, got %s", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", result.Status)
	}
	if result.Details["capacity"].(float64) != 10 {
		t.Errorf("expected capacity 10, got %v", result.Details["capacity"])
	}
}

// TestLimiterChecker_Degraded verifies a nearly drained bucket reports
// degraded. The refill rate is tiny so the drain holds during the check.
func TestLimiterChecker_Degraded(t *testing.T) {
	limiter := resilience.NewTokenBucket(resilience.TokenBucketConfig{
		Rate:  0.001,
		Burst: 10,
	})
	for i := 0; i < 9; i++ {
		if !limiter.Allow() {
			t.Fatalf("drain call %d unexpectedly rejected", i)
		}
	}

	checker := NewLimiterChecker("openai", limiter, LimiterCheckerConfig{
		WarningThreshold: 0.2,
	})

	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s: %s", result.Status, result.Message)
	}
}

// TestLimiterChecker_WindowExhausted verifies a full sliding window reports
// unhealthy.
func TestLimiterChecker_WindowExhausted(t *testing.T) {
	limiter := resilience.NewSlidingWindow(resilience.SlidingWindowConfig{
		Window:      time.Minute,
		MaxRequests: 3,
	})
	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("admission %d unexpectedly rejected", i)
		}
	}

	checker := NewLimiterChecker("openai", limiter, LimiterCheckerConfig{})

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", result.Status)
	}
	if result.Details["occupancy"].(int) != 3 {
		t.Errorf("expected occupancy 3, got %v", result.Details["occupancy"])
	}
}

// TestLimiterChecker_NilLimiter verifies a missing limiter is unhealthy.
func TestLimiterChecker_NilLimiter(t *testing.T) {
	checker := NewLimiterChecker("openai", nil, LimiterCheckerConfig{})
	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", result.Status)
	}
}

// TestBreakerChecker_WithAggregator verifies breaker and limiter checkers
// compose under the aggregator.
func TestBreakerChecker_WithAggregator(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      time.Hour,
	})
	limiter := resilience.NewTokenBucket(resilience.TokenBucketConfig{
		Rate:  100,
		Burst: 10,
	})

	agg := NewAggregator()
	agg.Register("breaker:openai", NewBreakerChecker("openai", breaker))
	agg.Register("limiter:openai", NewLimiterChecker("openai", limiter, LimiterCheckerConfig{}))

	results := agg.CheckAll(context.Background())
	if agg.OverallStatus(results) != StatusHealthy {
		t.Errorf("expected overall healthy, got %s", agg.OverallStatus(results))
	}

	// Trip the breaker: the provider's health drags the overall status down.
	breaker.RecordFailure(errors.New("provider down"))

	results = agg.CheckAll(context.Background())
	if agg.OverallStatus(results) != StatusUnhealthy {
		t.Errorf("expected overall unhealthy after trip, got %s", agg.OverallStatus(results))
	}
}
