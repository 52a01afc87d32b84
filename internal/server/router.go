// Package server wires the HTTP surface: the health check route, liveness and
// Prometheus metrics, behind request logging, metrics and panic recovery.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const HelloPath = "/Prod/hello"

type Options struct {
	Logger      *slog.Logger
	Metrics     *Metrics            // optional
	Gatherer    prometheus.Gatherer // optional; no metrics route when nil
	MetricsPath string
}

// NewRouter mounts hello on GET /Prod/hello.
func NewRouter(hello http.Handler, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, withLogging(opts.Logger))
	if opts.Metrics != nil {
		r.Use(withMetrics(opts.Metrics))
	}
	r.Use(withRecovery(opts.Logger))

	r.Method(http.MethodGet, HelloPath, hello)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// NewHTTPServer applies the service's connection timeouts. The write timeout
// must outlast the health check deadline.
func NewHTTPServer(addr string, handler http.Handler, checkTimeout time.Duration) *http.Server {
	writeTimeout := 15 * time.Second
	if floor := checkTimeout + 5*time.Second; writeTimeout < floor {
		writeTimeout = floor
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
