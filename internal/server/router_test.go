package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/hellodb/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var hello = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"Hello World with DB!"}`))
})

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter(t *testing.T) {
	h := server.NewRouter(hello, server.Options{Logger: slog.New(slog.DiscardHandler)})

	t.Run("serves the health check", func(t *testing.T) {
		rec := serve(h, http.MethodGet, server.HelloPath)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, `{"message":"Hello World with DB!"}`, rec.Body.String())
	})

	t.Run("serves liveness", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("rejects unknown routes", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/Prod/bye").Code)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		require.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, server.HelloPath).Code)
	})

	t.Run("has no metrics route without a gatherer", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/metrics").Code)
	})
}

func TestRouterMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_marker_total", Help: "Marker."}))

	h := server.NewRouter(hello, server.Options{
		Logger:      slog.New(slog.DiscardHandler),
		Gatherer:    reg,
		MetricsPath: "/internal/metrics",
	})

	rec := serve(h, http.MethodGet, "/internal/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "probe_marker_total 0")
}

func TestRouterRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := server.NewRouter(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("pool accessed before initialization")
	}), server.Options{Logger: logger})

	rec := serve(h, http.MethodGet, server.HelloPath)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	var panicEntry, requestEntry map[string]any
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &panicEntry))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &requestEntry))

	require.Equal(t, "panic recovered", panicEntry["msg"])
	require.Equal(t, "pool accessed before initialization", panicEntry["error"])
	require.NotEmpty(t, panicEntry["request_id"])

	require.Equal(t, "http request", requestEntry["msg"])
	require.EqualValues(t, http.StatusInternalServerError, requestEntry["status"])
	require.Equal(t, panicEntry["request_id"], requestEntry["request_id"])
}

func TestRouterRecordsRequestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := server.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	h := server.NewRouter(hello, server.Options{Logger: slog.New(slog.DiscardHandler), Metrics: m})
	serve(h, http.MethodGet, server.HelloPath)
	serve(h, http.MethodGet, "/nowhere")
	serve(h, http.MethodGet, "/elsewhere/42")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	routes := map[string]int64{}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "http_requests_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("route")
				code, _ := dp.Attributes.Value("status_code")
				require.Equal(t, int64(0), routes[route.AsString()], "route %s recorded twice", route.AsString())
				routes[route.AsString()] = code.AsInt64()
				counts[route.AsString()] = dp.Value
			}
		}
	}

	require.Equal(t, int64(http.StatusOK), routes[server.HelloPath])
	require.Equal(t, int64(http.StatusNotFound), routes["unmatched"])
	require.Equal(t, int64(2), counts["unmatched"])
	require.Len(t, routes, 2)
}

func TestNewHTTPServer(t *testing.T) {
	srv := server.NewHTTPServer(":3000", hello, 10*time.Second)
	require.Equal(t, 15*time.Second, srv.WriteTimeout)

	srv = server.NewHTTPServer(":3000", hello, 30*time.Second)
	require.Equal(t, 35*time.Second, srv.WriteTimeout)
}
