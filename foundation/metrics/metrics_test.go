package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/superfeelapi/goVoiceStress/foundation/metrics"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metrics.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := metrics.New(mp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordTick(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTick(ctx, metrics.OutcomeSilent)
	m.RecordTick(ctx, metrics.OutcomeSilent)
	m.RecordTick(ctx, metrics.OutcomeAnalyzed)

	met := findMetric(t, reader, "voicestress.ticks")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value("outcome")
		if v.AsString() == metrics.OutcomeSilent {
			if dp.Value != 2 {
				t.Fatalf("silent ticks = %d, want 2", dp.Value)
			}
			return
		}
	}
	t.Fatal("silent data point not found")
}

func TestRecordAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordAnalysis(context.Background(), 20*time.Millisecond)

	met := findMetric(t, reader, "voicestress.analysis.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestDefault(t *testing.T) {
	if metrics.Default() != metrics.Default() {
		t.Fatal("Default should return the same instance")
	}
}
