package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	probeDuration metric.Float64Histogram
	probeErrors   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.probeDuration, err = meter.Float64Histogram(
		"db_probe_duration_seconds",
		metric.WithDescription("Duration of database probe queries, including connection acquisition"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_probe_duration histogram: %w", err)
	}

	m.probeErrors, err = meter.Int64Counter(
		"db_probe_errors_total",
		metric.WithDescription("Database probes that returned an error"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_probe_errors_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordProbe(ctx context.Context, durationSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.probeErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", probeStage(err)),
		))
	}
	m.probeDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("status", status),
	))
}
