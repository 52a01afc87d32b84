// Package health runs the bounded database check behind GET /Prod/hello.
package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/hellodb/internal/database"
	"github.com/dejobratic/hellodb/internal/telemetry"
	"github.com/dejobratic/hellodb/internal/worker"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTimeout = 10 * time.Second

type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *Metrics // optional
}

// Checker probes the database on a worker pool and races the probe against a
// deadline. Check never returns an error; every outcome is a Result.
type Checker struct {
	prober  database.Prober
	workers *worker.Pool
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

func NewChecker(prober database.Prober, workers *worker.Pool, opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Checker{
		prober:  prober,
		workers: workers,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

func (c *Checker) Check(ctx context.Context) Result {
	ctx, span := telemetry.StartSpan(ctx, "HealthCheck.Check")
	defer span.End()

	start := time.Now()
	result := c.check(ctx)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordCheck(ctx, result.Outcome, duration.Seconds())
	}
	telemetry.AddSpanAttributes(span,
		attribute.String("health.outcome", result.Outcome.String()),
		attribute.Int64("health.timeout_ms", c.timeout.Milliseconds()),
	)

	if !result.OK() {
		telemetry.RecordSpanError(span, errors.New(result.Message))
		c.logger.ErrorContext(ctx, "database health check failed",
			"outcome", result.Outcome.String(),
			"error", result.Message,
			"duration", duration,
		)
		return result
	}

	telemetry.SetSpanSuccess(span)
	c.logger.InfoContext(ctx, "database health check succeeded", "duration", duration)
	return result
}

func (c *Checker) check(ctx context.Context) Result {
	// Cancelled when Check returns, so an abandoned probe releases its connection.
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	done, err := c.workers.Submit(probeCtx, c.prober.Probe)
	if err != nil {
		return c.fromContext(ctx, err)
	}

	select {
	case err := <-done:
		return c.fromContext(ctx, err)
	case <-timer.C:
		return timedOut(c.timeout)
	case <-ctx.Done():
		return c.fromContext(ctx, ctx.Err())
	}
}

// fromContext maps err, treating a cancelled request as a failure rather than
// a timeout of the check itself.
func (c *Checker) fromContext(ctx context.Context, err error) Result {
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		return failed(ctx.Err())
	}
	return resultFromError(err, c.timeout)
}
