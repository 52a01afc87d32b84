package database

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/hellodb/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Prober runs a single connectivity check against the database.
type Prober interface {
	Probe(ctx context.Context) error
}

// ObservableProber wraps a Prober with a span and probe metrics.
type ObservableProber struct {
	prober  Prober
	metrics *Metrics
}

func NewObservableProber(prober Prober, metrics *Metrics) *ObservableProber {
	return &ObservableProber{
		prober:  prober,
		metrics: metrics,
	}
}

func (p *ObservableProber) Probe(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "Database.Probe")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("db.system", "postgresql"),
		attribute.String("operation", "probe"),
	)

	start := time.Now()
	err := p.prober.Probe(ctx)
	duration := time.Since(start).Seconds()

	p.metrics.RecordProbe(ctx, duration, err)

	if err != nil {
		telemetry.AddSpanAttributes(span, attribute.String("probe.stage", probeStage(err)))
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func probeStage(err error) string {
	switch {
	case errors.Is(err, ErrPoolUnavailable):
		return "acquire"
	case errors.Is(err, ErrProbeFailed):
		return "query"
	default:
		return "unknown"
	}
}
