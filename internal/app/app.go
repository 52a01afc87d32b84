// Package app assembles the service from configuration. Both the local server
// and the Lambda entry point build the same App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dejobratic/hellodb/internal/config"
	"github.com/dejobratic/hellodb/internal/database"
	"github.com/dejobratic/hellodb/internal/health"
	"github.com/dejobratic/hellodb/internal/metrics"
	"github.com/dejobratic/hellodb/internal/server"
	"github.com/dejobratic/hellodb/internal/telemetry"
	"github.com/dejobratic/hellodb/internal/worker"
)

type App struct {
	Handler http.Handler

	logger    *slog.Logger
	telemetry *telemetry.Telemetry
	db        *database.Manager
	workers   *worker.Pool
}

// New initialises telemetry and the database pool and builds the router. On
// error everything created so far is released.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...telemetry.Option) (*App, error) {
	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	a := &App{logger: logger, telemetry: tel, db: database.NewManager()}

	if err := a.db.Initialize(ctx, database.Config{
		URL:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConns,
		ProbeQuery: cfg.Database.ProbeQuery,
	}); err != nil {
		_ = a.Shutdown(ctx)
		return nil, fmt.Errorf("initialize database pool: %w", err)
	}

	a.workers = worker.New(worker.Options{
		Workers:   cfg.Health.Workers,
		QueueSize: cfg.Health.QueueSize,
		Logger:    logger,
	})

	if err := a.buildHandler(cfg); err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}

	logger.InfoContext(ctx, "application initialized",
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
		"max_conns", a.db.Pool().Config().MaxConns,
		"health_timeout", cfg.Health.Timeout,
		"workers", cfg.Health.Workers,
	)

	return a, nil
}

func (a *App) buildHandler(cfg *config.Config) error {
	meter := a.telemetry.Meter()

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}
	healthMetrics, err := health.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create health metrics: %w", err)
	}
	httpMetrics, err := server.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	checker := health.NewChecker(
		database.NewObservableProber(a.db, dbMetrics),
		a.workers,
		health.Options{
			Timeout: cfg.Health.Timeout,
			Logger:  a.logger,
			Metrics: healthMetrics,
		},
	)

	a.Handler = server.NewRouter(health.NewHandler(checker), server.Options{
		Logger:      a.logger,
		Metrics:     httpMetrics,
		Gatherer:    metrics.NewRegistry(metrics.NewPoolCollector(a.db.Pool(), a.workers)),
		MetricsPath: cfg.HTTP.MetricsPath,
	})
	return nil
}

// Flush exports buffered telemetry without stopping anything.
func (a *App) Flush(ctx context.Context) error {
	return a.telemetry.ForceFlush(ctx)
}

// Shutdown stops the workers, closes the pool and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.workers != nil {
		if err := a.workers.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close workers: %w", err))
		}
	}

	a.db.Close()

	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// LogDiagnostics logs the library path and libpq settings, at info when set
// and debug when not.
func LogDiagnostics(ctx context.Context, logger *slog.Logger) {
	for name, d := range config.Diagnostics() {
		if d.Set {
			logger.InfoContext(ctx, "environment diagnostic", "name", name, "value", d.Value)
			continue
		}
		logger.DebugContext(ctx, "environment diagnostic not set", "name", name)
	}
}
