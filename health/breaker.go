package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/callguard/resilience"
)

// BreakerChecker reports the health of a provider through its circuit breaker.
// A closed circuit is healthy, a half-open circuit is degraded while probes
// are in flight, and an open circuit is unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for the given provider's breaker.
func NewBreakerChecker(provider string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{
		name:    "breaker:" + provider,
		breaker: breaker,
	}
}

// Name returns the name of this checker.
func (b *BreakerChecker) Name() string {
	return b.name
}

// Check inspects the breaker state without mutating it.
func (b *BreakerChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	if b.breaker == nil {
		return Unhealthy("no breaker configured", ErrCheckFailed)
	}

	m := b.breaker.Metrics()

	details := map[string]any{
		"state":          m.State.String(),
		"failures":       m.Failures,
		"successes":      m.Successes,
		"total_requests": m.TotalRequests,
		"total_failures": m.TotalFailures,
		"trip_count":     m.TripCount,
		"success_rate":   m.SuccessRate,
	}
	if !m.OpenedAt.IsZero() {
		details["opened_at"] = m.OpenedAt
	}
	if !m.HalfOpenAt.IsZero() {
		details["half_open_at"] = m.HalfOpenAt
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy(
			fmt.Sprintf("circuit open after %d trips", m.TripCount),
			resilience.ErrCircuitOpen,
		).WithDetails(details)

	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing provider").WithDetails(details)

	default:
		return Healthy(
			fmt.Sprintf("circuit closed, success rate %.1f%%", m.SuccessRate*100),
		).WithDetails(details)
	}
}

// Info returns the breaker counters as a detail map.
func (b *BreakerChecker) Info(ctx context.Context) (map[string]any, error) {
	result := b.Check(ctx)
	if result.Error != nil {
		return result.Details, result.Error
	}
	return result.Details, nil
}

// LimiterCheckerConfig configures the rate limiter health checker.
type LimiterCheckerConfig struct {
	// WarningThreshold is the fraction of remaining capacity below which the
	// checker reports degraded. Value should be between 0 and 1.
	// Default: 0.2 (20%)
	WarningThreshold float64
}

// LimiterChecker reports how much admission capacity a provider's rate
// limiter has left. It degrades when the remaining fraction drops below the
// warning threshold and goes unhealthy at zero.
type LimiterChecker struct {
	name    string
	limiter resilience.Limiter
	config  LimiterCheckerConfig
}

// NewLimiterChecker creates a checker for the given provider's limiter.
func NewLimiterChecker(provider string, limiter resilience.Limiter, config LimiterCheckerConfig) *LimiterChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.2
	}

	return &LimiterChecker{
		name:    "limiter:" + provider,
		limiter: limiter,
		config:  config,
	}
}

// Name returns the name of this checker.
func (l *LimiterChecker) Name() string {
	return l.name
}

// Check inspects the limiter's remaining capacity without consuming any.
func (l *LimiterChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	if l.limiter == nil {
		return Unhealthy("no limiter configured", ErrCheckFailed)
	}

	m := l.limiter.Metrics()

	// Token bucket limiters report Tokens/Capacity, sliding windows report
	// Occupancy/Limit. Normalize both to a remaining fraction.
	var remaining float64
	details := map[string]any{}
	switch {
	case m.Capacity > 0:
		remaining = m.Tokens / m.Capacity
		details["tokens"] = m.Tokens
		details["capacity"] = m.Capacity
	case m.Limit > 0:
		remaining = float64(m.Limit-m.Occupancy) / float64(m.Limit)
		details["occupancy"] = m.Occupancy
		details["limit"] = m.Limit
	default:
		return Healthy("limiter reports no capacity bounds")
	}
	details["remaining_percent"] = remaining * 100

	if remaining <= 0 {
		return Unhealthy("rate limit capacity exhausted", ErrCheckFailed).WithDetails(details)
	}

	if remaining < l.config.WarningThreshold {
		return Degraded(
			fmt.Sprintf("rate limit capacity low: %.1f%% remaining", remaining*100),
		).WithDetails(details)
	}

	return Healthy(
		fmt.Sprintf("rate limit capacity normal: %.1f%% remaining", remaining*100),
	).WithDetails(details)
}
