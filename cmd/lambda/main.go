package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dejobratic/hellodb/internal/app"
	"github.com/dejobratic/hellodb/internal/config"
	"github.com/dejobratic/hellodb/internal/serverless"
	"github.com/dejobratic/hellodb/internal/telemetry"
)

// The pool is built once per execution environment during cold start and
// reused by every invocation.
func main() {
	logger := telemetry.NewLogger(os.Stderr, slog.LevelDebug)
	slog.SetDefault(logger)
	defer telemetry.LogPanic(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		logger.Error("failed to parse log level", "error", err)
		os.Exit(1)
	}
	logger = telemetry.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	ctx := context.Background()
	app.LogDiagnostics(ctx, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	lambda.Start(serverless.NewHandler(a.Handler, serverless.Options{
		IgnoreStageInPath: cfg.HTTP.IgnoreStageInPath,
		Flush: func(ctx context.Context) {
			if err := a.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "failed to flush telemetry", "error", err)
			}
		},
	}))
}
