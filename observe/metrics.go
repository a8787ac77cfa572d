package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for provider calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed logical call with its total duration and
	// final error status. Retried attempts collapse into one RecordCall.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordAttempt records a single attempt within a call. The attempt index
	// is 1-based.
	RecordAttempt(ctx context.Context, meta CallMeta, attempt int, duration time.Duration, err error)

	// RecordBreakerTransition records a circuit breaker state change for a
	// provider.
	RecordBreakerTransition(ctx context.Context, provider, from, to string)
}

type metricsImpl struct {
	meter          metric.Meter
	callTotal      metric.Int64Counter
	callErrors     metric.Int64Counter
	callDuration   metric.Float64Histogram
	attemptTotal   metric.Int64Counter
	attemptErrors  metric.Int64Counter
	attemptLatency metric.Float64Histogram
	transitions    metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	callTotal, err := meter.Int64Counter(
		"call.exec.total",
		metric.WithDescription("Total number of logical provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	callErrors, err := meter.Int64Counter(
		"call.exec.errors",
		metric.WithDescription("Total number of provider calls that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram(
		"call.exec.duration_ms",
		metric.WithDescription("Provider call duration in milliseconds, retries included"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	attemptTotal, err := meter.Int64Counter(
		"call.attempt.total",
		metric.WithDescription("Total number of individual attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptErrors, err := meter.Int64Counter(
		"call.attempt.errors",
		metric.WithDescription("Total number of failed attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	attemptLatency, err := meter.Float64Histogram(
		"call.attempt.duration_ms",
		metric.WithDescription("Single attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"call.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:          meter,
		callTotal:      callTotal,
		callErrors:     callErrors,
		callDuration:   callDuration,
		attemptTotal:   attemptTotal,
		attemptErrors:  attemptErrors,
		attemptLatency: attemptLatency,
		transitions:    transitions,
	}, nil
}

func callAttrs(meta CallMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.provider", meta.Provider),
		attribute.String("call.operation", meta.Operation),
	}
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("call.model", meta.Model))
	}
	return attrs
}

// RecordCall records metrics for a completed logical call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(callAttrs(meta)...)

	m.callTotal.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordAttempt records metrics for a single attempt.
func (m *metricsImpl) RecordAttempt(ctx context.Context, meta CallMeta, attempt int, duration time.Duration, err error) {
	attrs := append(callAttrs(meta), attribute.Int("call.attempt", attempt))
	opt := metric.WithAttributes(attrs...)

	m.attemptTotal.Add(ctx, 1, opt)
	if err != nil {
		m.attemptErrors.Add(ctx, 1, opt)
	}
	m.attemptLatency.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordBreakerTransition records a breaker state change.
func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, provider, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.provider", provider),
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordAttempt(ctx context.Context, meta CallMeta, attempt int, duration time.Duration, err error) {
}

func (m *noopMetrics) RecordBreakerTransition(ctx context.Context, provider, from, to string) {
}
