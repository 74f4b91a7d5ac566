package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestCounterObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.TakesRecorded.Add(ctx, 1)
	m.TakesRecorded.Add(ctx, 2)

	rm := collect(t, reader)
	mm := findMetric(rm, "recbooth.takes.recorded")
	if mm == nil {
		t.Fatal("metric recbooth.takes.recorded not found")
	}
	sum, ok := mm.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", mm.Data)
	}
	if got := sum.DataPoints[0].Value; got != 3 {
		t.Errorf("counter value = %d, want 3", got)
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SubmissionDuration.Record(ctx, 1.5, WithStatus("ok"))

	rm := collect(t, reader)
	mm := findMetric(rm, "recbooth.submission.duration")
	if mm == nil {
		t.Fatal("metric recbooth.submission.duration not found")
	}
	hist, ok := mm.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", mm.Data)
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("histogram count = %d, want 1", got)
	}
}
