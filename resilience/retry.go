package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry executor.
type RetryConfig struct {
	// MaxAttempts is the maximum number of invocations per call
	// (including the initial one).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier; must be > 1.0.
	// Default: 2.0
	Multiplier float64

	// JitterFraction adds a uniformly random extra delay in
	// [0, JitterFraction*delay]. Zero leaves delays deterministic.
	// Default: 0
	JitterFraction float64

	// MaxElapsed is the wall-clock budget for the whole call, checked after
	// each failed attempt. Zero means the attempt budget is the only limit.
	// Default: 0
	MaxElapsed time.Duration

	// Classifier decides whether an error is retryable. Terminal errors are
	// returned immediately without further attempts.
	// Default: DefaultClassifier (every error is retried).
	Classifier Classifier

	// OnAttempt is called after every attempt with its 1-based index and
	// outcome (nil on success). The resilient caller uses this to feed the
	// circuit breaker per attempt.
	OnAttempt func(attempt int, err error)

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry executes operations with exponential backoff. All state is scoped to
// a single Execute call; one Retry instance may be shared freely.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry executor.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.Multiplier <= 1.0 {
		config.Multiplier = 2.0
	}
	if config.JitterFraction < 0 {
		config.JitterFraction = 0
	}
	if config.JitterFraction > 1 {
		config.JitterFraction = 1
	}
	if config.Classifier == nil {
		config.Classifier = DefaultClassifier()
	}

	return &Retry{config: config}
}

// Execute invokes op until it succeeds, fails terminally, or the attempt or
// elapsed-time budget runs out. The operation must be safe to invoke more
// than once; the executor cannot verify idempotence.
//
// Budget exhaustion returns *ExhaustedError wrapping the last error, so the
// caller can distinguish "gave up" from the underlying remote failure.
// Cancellation during a backoff sleep aborts the loop without a further
// attempt.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	start := time.Now()
	var lastErr error

	for attempt := 1; ; attempt++ {
		err := op(ctx)

		if r.config.OnAttempt != nil {
			r.config.OnAttempt(attempt, err)
		}

		if err == nil {
			return nil
		}
		lastErr = err

		// Terminal errors short-circuit: no delay, no further attempts.
		if !r.config.Classifier.IsRetryable(err) {
			return err
		}

		elapsed := time.Since(start)
		if attempt >= r.config.MaxAttempts ||
			(r.config.MaxElapsed > 0 && elapsed >= r.config.MaxElapsed) {
			return &ExhaustedError{
				Attempts: attempt,
				Elapsed:  elapsed,
				Err:      lastErr,
			}
		}

		delay := r.delay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// delay computes the backoff before the retry following the given attempt.
// Pre-jitter the delay is non-decreasing in the attempt number and saturates
// at MaxDelay.
func (r *Retry) delay(attempt int) time.Duration {
	backoff := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	delay := time.Duration(backoff)
	if backoff >= float64(r.config.MaxDelay) || delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	if r.config.JitterFraction > 0 && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := time.Duration(rand.Int64N(int64(r.config.JitterFraction*float64(delay)) + 1))
		delay += jitter
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
