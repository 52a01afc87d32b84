package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/hellodb/internal/app"
	"github.com/dejobratic/hellodb/internal/config"
	"github.com/dejobratic/hellodb/internal/server"
	"github.com/dejobratic/hellodb/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.LogDiagnostics(ctx, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	srv := server.NewHTTPServer(cfg.HTTP.Addr(), a.Handler, cfg.Health.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		} else {
			logger.Info("http server stopped")
		}
		return a.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}
