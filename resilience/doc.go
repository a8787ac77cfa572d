// Package resilience wraps outbound calls to remote LLM provider APIs with
// cooperating protection mechanisms.
//
// The package is provider-agnostic: it consumes an abstract Operation that
// eventually succeeds or fails with a classifiable error, and an injected
// Classifier that maps provider errors onto the retry and circuit decisions.
// Wire formats, payload schemas and authentication are the caller's problem.
//
// # Components
//
//   - Circuit Breaker: tracks recent failure history per provider and opens
//     to fail fast while the provider is unhealthy, probing recovery through
//     a half-open state.
//
//   - Retry: re-invokes failed operations with exponential backoff and
//     jitter, bounded by attempt and wall-clock budgets.
//
//   - Rate Limiter: token bucket or sliding window admission with a wait or
//     reject policy.
//
//   - Bulkhead: bounds concurrent in-flight calls.
//
//   - Timeout: bounds a single attempt's duration.
//
//   - Caller: composes the above in admission order, feeding every attempt's
//     outcome back into the breaker.
//
// # Usage
//
//	classifier := resilience.StatusClassifier{}
//
//	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 3,
//	    SuccessThreshold: 2,
//	    OpenTimeout:      30 * time.Second,
//	    Classifier:       classifier,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    BaseDelay:   100 * time.Millisecond,
//	    MaxDelay:    5 * time.Second,
//	    Classifier:  classifier,
//	})
//
//	limiter := resilience.NewTokenBucket(resilience.TokenBucketConfig{
//	    Rate:   10, // requests per second
//	    Burst:  5,
//	    Policy: resilience.PolicyWait,
//	})
//
//	caller := resilience.NewCaller(
//	    resilience.WithLimiter(limiter),
//	    resilience.WithBreaker(breaker),
//	    resilience.WithRetry(retry),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := caller.Execute(ctx, func(ctx context.Context) error {
//	    return callProvider(ctx)
//	})
package resilience
