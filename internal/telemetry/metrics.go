package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the API client instruments.
type Metrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the client instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.requestsTotal, err = meter.Int64Counter(
		"storeprobe_api_requests_total",
		metric.WithDescription("Total number of storefront API calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storeprobe_api_requests_total counter: %w", err)
	}

	m.requestDuration, err = meter.Float64Histogram(
		"storeprobe_api_request_duration_seconds",
		metric.WithDescription("Duration of storefront API calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storeprobe_api_request_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// NewGlobalMetrics creates the instruments on the global meter provider.
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

// RecordRequest counts one call to operation and records its duration.
func (m *Metrics) RecordRequest(ctx context.Context, operation string, durationSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.requestsTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, durationSeconds, attrs)
}
