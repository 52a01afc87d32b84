package health_test

import (
	"context"
	"testing"

	"github.com/dejobratic/hellodb/internal/health"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordCheck(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := health.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCheck(ctx, health.Success, 0.01)
	m.RecordCheck(ctx, health.Success, 0.02)
	m.RecordCheck(ctx, health.Timeout, 10)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	counts := map[string]int64{}
	var histogramSeen bool
	for _, md := range rm.ScopeMetrics[0].Metrics {
		switch data := md.Data.(type) {
		case metricdata.Sum[int64]:
			require.Equal(t, "health_checks_total", md.Name)
			for _, dp := range data.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				counts[outcome.AsString()] = dp.Value
			}
		case metricdata.Histogram[float64]:
			require.Equal(t, "health_check_duration_seconds", md.Name)
			require.Len(t, data.DataPoints, 2)
			histogramSeen = true
		}
	}

	require.Equal(t, map[string]int64{"success": 2, "timeout": 1}, counts)
	require.True(t, histogramSeen)
}

func TestCheckRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := health.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	checker := health.NewChecker(proberFunc(func(context.Context) error { return nil }), newWorkers(t, 1, 0), health.Options{
		Metrics: m,
	})
	require.True(t, checker.Check(context.Background()).OK())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 2)
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "success", health.Success.String())
	require.Equal(t, "failure", health.Failure.String())
	require.Equal(t, "timeout", health.Timeout.String())
	require.Equal(t, "unknown", health.Outcome(42).String())
}
