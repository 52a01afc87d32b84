package health

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	checksTotal   metric.Int64Counter
	checkDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.checksTotal, err = meter.Int64Counter(
		"health_checks_total",
		metric.WithDescription("Total number of database health checks by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create health_checks_total counter: %w", err)
	}

	m.checkDuration, err = meter.Float64Histogram(
		"health_check_duration_seconds",
		metric.WithDescription("Duration of database health checks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create health_check_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordCheck(ctx context.Context, outcome Outcome, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome.String()))
	m.checksTotal.Add(ctx, 1, attrs)
	m.checkDuration.Record(ctx, durationSeconds, attrs)
}
