package resilience

import (
	"context"
	"time"
)

// Operation is a single invocable unit of work against a remote provider:
// one logical API call that eventually succeeds or fails with a classifiable
// error. Operations passed to a Caller configured with retries must be safe
// to invoke repeatedly.
type Operation func(ctx context.Context) error

// MetricsSink receives per-attempt outcomes from the Caller. Implementations
// must be safe for concurrent use and must not panic; the observe package
// provides an OpenTelemetry-backed implementation.
type MetricsSink interface {
	// RecordAttempt is called once per invocation of the operation with the
	// 1-based attempt index, the attempt duration and its outcome.
	RecordAttempt(ctx context.Context, attempt int, duration time.Duration, err error)

	// RecordOutcome is called once per logical call with the end-to-end
	// duration and final result.
	RecordOutcome(ctx context.Context, duration time.Duration, err error)
}

// Caller sequences the protection mechanisms around a provider call:
// rate limiter admission, bulkhead slot, circuit breaker admission, then the
// retry-wrapped operation. Every individual attempt reports back to the
// circuit breaker, so breaker history reflects attempt-level health rather
// than only the end-to-end result.
type Caller struct {
	limiter  Limiter
	breaker  *CircuitBreaker
	retry    *Retry
	bulkhead *Bulkhead
	timeout  *Timeout
	sink     MetricsSink
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// NewCaller creates a resilient caller. All components are optional; an
// unconfigured Caller invokes the operation directly.
func NewCaller(opts ...CallerOption) *Caller {
	c := &Caller{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLimiter adds rate limiter admission to the caller.
func WithLimiter(l Limiter) CallerOption {
	return func(c *Caller) {
		c.limiter = l
	}
}

// WithBreaker adds a circuit breaker to the caller.
func WithBreaker(cb *CircuitBreaker) CallerOption {
	return func(c *Caller) {
		c.breaker = cb
	}
}

// WithRetry adds retry logic to the caller.
func WithRetry(r *Retry) CallerOption {
	return func(c *Caller) {
		c.retry = r
	}
}

// WithBulkhead adds concurrency isolation to the caller.
func WithBulkhead(b *Bulkhead) CallerOption {
	return func(c *Caller) {
		c.bulkhead = b
	}
}

// WithTimeout adds a per-attempt deadline to the caller.
func WithTimeout(timeout time.Duration) CallerOption {
	return func(c *Caller) {
		c.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithMetricsSink adds a per-attempt metrics sink to the caller.
func WithMetricsSink(s MetricsSink) CallerOption {
	return func(c *Caller) {
		c.sink = s
	}
}

// Execute runs one logical call through the configured protections:
//
//  1. Rate limiter admission, suspending or rejecting per its policy.
//  2. Bulkhead slot, held for the whole call.
//  3. Circuit breaker admission; ErrCircuitOpen fails fast and the
//     operation is never invoked.
//  4. The retry executor around the operation, with each attempt's outcome
//     reported to the breaker and the metrics sink.
//
// The final error is one of: nil, the operation's terminal error, a
// *ExhaustedError, ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, or
// the caller's context error.
func (c *Caller) Execute(ctx context.Context, op Operation) error {
	start := time.Now()

	err := c.execute(ctx, op)

	if c.sink != nil {
		c.sink.RecordOutcome(ctx, time.Since(start), err)
	}
	return err
}

func (c *Caller) execute(ctx context.Context, op Operation) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	if c.bulkhead != nil {
		if err := c.bulkhead.Acquire(ctx); err != nil {
			return err
		}
		defer c.bulkhead.Release()
	}

	if c.breaker != nil && !c.breaker.CanExecute() {
		return ErrCircuitOpen
	}

	attempt := c.attemptRunner(op)

	if c.retry == nil {
		return attempt.run(ctx, 1)
	}

	// Rebind the retry executor's per-attempt hook to this call so the
	// breaker and sink see every attempt. Retry state is per-Execute, so the
	// shallow copy shares no mutable state with the original.
	r := *c.retry
	userHook := r.config.OnAttempt
	r.config.OnAttempt = func(n int, err error) {
		attempt.observe(n, err)
		if userHook != nil {
			userHook(n, err)
		}
	}
	return r.Execute(ctx, attempt.op)
}

// attemptState wraps the operation with the per-attempt timeout and the
// feedback path into the breaker and sink. Attempts within one logical call
// are sequential, so the single lastStart/ctx pair is race-free.
// Cancellation mid-flight still produces exactly one recorded outcome per
// attempt.
type attemptState struct {
	caller    *Caller
	inner     Operation
	ctx       context.Context
	lastStart time.Time
}

func (c *Caller) attemptRunner(op Operation) *attemptState {
	inner := op
	if c.timeout != nil {
		t := c.timeout
		inner = func(ctx context.Context) error {
			return t.Execute(ctx, op)
		}
	}
	return &attemptState{caller: c, inner: inner}
}

// op is the function handed to the retry executor.
func (a *attemptState) op(ctx context.Context) error {
	a.ctx = ctx
	a.lastStart = time.Now()
	return a.inner(ctx)
}

// observe reports one attempt's outcome to the breaker and metrics sink.
func (a *attemptState) observe(attempt int, err error) {
	if cb := a.caller.breaker; cb != nil {
		if err != nil {
			cb.RecordFailure(err)
		} else {
			cb.RecordSuccess()
		}
	}
	if s := a.caller.sink; s != nil {
		s.RecordAttempt(a.ctx, attempt, time.Since(a.lastStart), err)
	}
}

// run executes a single attempt directly (no retry executor configured).
func (a *attemptState) run(ctx context.Context, attempt int) error {
	err := a.op(ctx)
	a.observe(attempt, err)
	return err
}

// Snapshot combines the breaker and limiter views into the externally
// published metrics shape.
type Snapshot struct {
	Breaker  CircuitBreakerMetrics
	Limiter  LimiterMetrics
	Bulkhead BulkheadMetrics
}

// Snapshot returns the current observability view of the caller's shared
// components. Components not configured report zero values.
func (c *Caller) Snapshot() Snapshot {
	var s Snapshot
	if c.breaker != nil {
		s.Breaker = c.breaker.Metrics()
	}
	if c.limiter != nil {
		s.Limiter = c.limiter.Metrics()
	}
	if c.bulkhead != nil {
		s.Bulkhead = c.bulkhead.Metrics()
	}
	return s
}
