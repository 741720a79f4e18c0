package gateway

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// clientMetrics holds the OpenTelemetry metric instruments for the client.
// Instruments are created once in New when a MeterProvider is configured and
// reused for every invocation. A nil *clientMetrics disables recording.
type clientMetrics struct {
	// invokeDuration records invocation wall-clock time in milliseconds
	invokeDuration metric.Float64Histogram

	// invokeCounter increments for every invocation attempt
	invokeCounter metric.Int64Counter

	// breakerTransitions increments on every circuit breaker state change
	breakerTransitions metric.Int64Counter
}

// newClientMetrics creates the metric instruments on the given meter.
func newClientMetrics(meter metric.Meter) (*clientMetrics, error) {
	m := &clientMetrics{}
	var err error

	m.invokeDuration, err = meter.Float64Histogram(
		"gateway.invoke.duration",
		metric.WithDescription("Tool invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	m.invokeCounter, err = meter.Int64Counter(
		"gateway.invoke.count",
		metric.WithDescription("Number of tool invocations attempted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invocation counter: %w", err)
	}

	m.breakerTransitions, err = meter.Int64Counter(
		"gateway.breaker.transitions",
		metric.WithDescription("Number of circuit breaker state transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create breaker transition counter: %w", err)
	}

	return m, nil
}

// recordInvocation records the outcome of one invocation attempt.
// errorCode is empty for successful invocations.
func (m *clientMetrics) recordInvocation(ctx context.Context, toolName string, durationMS float64, errorCode string) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", toolName),
		attribute.Bool("success", errorCode == ""),
	}
	if errorCode != "" {
		attrs = append(attrs, attribute.String("error_code", errorCode))
	}

	set := metric.WithAttributes(attrs...)
	m.invokeCounter.Add(ctx, 1, set)
	m.invokeDuration.Record(ctx, durationMS, set)
}

// recordBreakerTransition records a circuit breaker state change.
func (m *clientMetrics) recordBreakerTransition(from, to string) {
	if m == nil {
		return
	}

	m.breakerTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
