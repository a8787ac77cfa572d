package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/callguard/resilience"
)

// CallSink adapts Metrics and Logger into a resilience.MetricsSink bound to
// one CallMeta. Wire it into a caller with resilience.WithMetricsSink so
// every attempt and final outcome lands in telemetry.
//
// Contract:
// - Concurrency: safe for concurrent use; the bound CallMeta is immutable.
// - Errors: recording is best-effort and never panics.
type CallSink struct {
	meta    CallMeta
	metrics Metrics
	logger  Logger
}

// NewCallSink creates a sink that attributes all recordings to meta.
// A nil metrics or logger falls back to a no-op implementation.
func NewCallSink(meta CallMeta, metrics Metrics, logger Logger) *CallSink {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &CallSink{
		meta:    meta,
		metrics: metrics,
		logger:  logger,
	}
}

// SinkFromObserver creates a CallSink from an Observer.
func SinkFromObserver(obs Observer, meta CallMeta) (*CallSink, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewCallSink(meta, metrics, obs.Logger()), nil
}

// RecordAttempt implements resilience.MetricsSink.
func (s *CallSink) RecordAttempt(ctx context.Context, attempt int, duration time.Duration, err error) {
	s.metrics.RecordAttempt(ctx, s.meta, attempt, duration, err)

	if err != nil {
		s.logger.WithCall(s.meta).Warn(ctx, "attempt failed",
			Field{Key: "attempt", Value: attempt},
			Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// RecordOutcome implements resilience.MetricsSink.
func (s *CallSink) RecordOutcome(ctx context.Context, duration time.Duration, err error) {
	s.metrics.RecordCall(ctx, s.meta, duration, err)

	callLogger := s.logger.WithCall(s.meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		callLogger.Error(ctx, "call failed", fields...)
	} else {
		callLogger.Debug(ctx, "call completed", fields...)
	}
}

var _ resilience.MetricsSink = (*CallSink)(nil)

// BreakerTransitionHook returns an OnStateChange callback for a circuit
// breaker that records the transition and logs it at a severity matching the
// direction: opening is an error, recovering is informational.
func BreakerTransitionHook(provider string, metrics Metrics, logger Logger) func(from, to resilience.State) {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return func(from, to resilience.State) {
		ctx := context.Background()
		metrics.RecordBreakerTransition(ctx, provider, from.String(), to.String())

		fields := []Field{
			{Key: "call.provider", Value: provider},
			{Key: "breaker.from", Value: from.String()},
			{Key: "breaker.to", Value: to.String()},
		}
		if to == resilience.StateOpen {
			logger.Error(ctx, "circuit opened", fields...)
		} else {
			logger.Info(ctx, "circuit state changed", fields...)
		}
	}
}
