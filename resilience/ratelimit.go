package resilience

import (
	"context"
	"sync"
	"time"
)

// Policy selects what the rate limiter does when capacity is unavailable.
type Policy int

const (
	// PolicyReject returns ErrRateLimitExceeded immediately.
	PolicyReject Policy = iota
	// PolicyWait suspends the caller until capacity is available or the
	// context is done.
	PolicyWait
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyWait:
		return "wait"
	default:
		return "unknown"
	}
}

// Limiter is the contract shared by both rate limiting strategies. One
// limiter instance is shared by all callers targeting a provider.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; the
//   capacity check and the consume must be one atomic step.
// - Context: Acquire must honor cancellation while waiting.
// - Fairness: admission among waiting callers is best-effort, not FIFO.
type Limiter interface {
	// Acquire admits the caller, suspending under PolicyWait or returning
	// ErrRateLimitExceeded under PolicyReject when capacity is exhausted.
	Acquire(ctx context.Context) error

	// Allow reports whether a call would be admitted right now, consuming
	// capacity if so. It never blocks.
	Allow() bool

	// Metrics returns a snapshot of remaining capacity.
	Metrics() LimiterMetrics
}

// LimiterMetrics contains rate limiter statistics. Tokens/Capacity describe a
// token bucket; Occupancy/Limit describe a sliding window. The strategy not
// in use leaves its fields zero.
type LimiterMetrics struct {
	Tokens    float64
	Capacity  float64
	Occupancy int
	Limit     int
}

// TokenBucketConfig configures the token bucket limiter.
type TokenBucketConfig struct {
	// Rate is the number of tokens refilled per second.
	// Default: 100
	Rate float64

	// Burst is the bucket capacity: the number of calls that may be admitted
	// back to back after an idle period.
	// Default: 10
	Burst int

	// Policy selects wait or reject when the bucket is empty.
	// Default: PolicyReject
	Policy Policy
}

// TokenBucket admits calls by spending fractional tokens that accumulate over
// time. The bucket starts full.
type TokenBucket struct {
	config TokenBucketConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a new token bucket limiter.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	// Apply defaults
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}

	return &TokenBucket{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available. Refill, check and consume happen
// under one lock hold, so a burst of concurrent callers can never overdraw
// the bucket.
func (tb *TokenBucket) Allow() bool {
	admitted, _ := tb.take()
	return admitted
}

// Acquire admits the caller per the configured policy. Under PolicyWait the
// caller sleeps for the time the next token needs to accumulate and then
// re-attempts admission; a concurrent caller may win the token, in which case
// the wait repeats.
func (tb *TokenBucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		admitted, wait := tb.take()
		if admitted {
			return nil
		}
		if tb.config.Policy == PolicyReject {
			return ErrRateLimitExceeded
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take refills the bucket and tries to consume one token. When the bucket is
// empty it returns the time until a full token will have accumulated.
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}

	wait := time.Duration((1.0 - tb.tokens) / tb.config.Rate * float64(time.Second))
	return false, wait
}

// refillLocked recomputes capacity from elapsed time. Must be called with
// tb.mu held.
func (tb *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.lastRefill = now

	tb.tokens += elapsed.Seconds() * tb.config.Rate
	if tb.tokens > float64(tb.config.Burst) {
		tb.tokens = float64(tb.config.Burst)
	}
}

// Metrics returns the current token count and capacity.
func (tb *TokenBucket) Metrics() LimiterMetrics {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refillLocked()

	return LimiterMetrics{
		Tokens:   tb.tokens,
		Capacity: float64(tb.config.Burst),
	}
}

// Tokens returns the current number of available tokens.
func (tb *TokenBucket) Tokens() float64 {
	return tb.Metrics().Tokens
}

var _ Limiter = (*TokenBucket)(nil)
