// Package observe provides application-wide observability primitives for
// recbooth: OpenTelemetry metrics, tracing helpers, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all recbooth metrics.
const meterName = "github.com/korralabs/recbooth"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// CaptureDuration tracks how long takes are, from capture start to stop.
	CaptureDuration metric.Float64Histogram

	// AnalysisDuration tracks quality-analysis latency.
	AnalysisDuration metric.Float64Histogram

	// SubmissionDuration tracks the end-of-session upload latency.
	SubmissionDuration metric.Float64Histogram

	// --- Counters ---

	// TakesRecorded counts completed takes.
	TakesRecorded metric.Int64Counter

	// CaptureFailures counts failed capture starts. Use with attribute:
	//   attribute.String("reason", "denied"|"constraint"|"device")
	CaptureFailures metric.Int64Counter

	// AnalysisRuns counts analyzer invocations. Use with attribute:
	//   attribute.String("verdict", ...)
	AnalysisRuns metric.Int64Counter

	// TokensSkipped counts skip marks set by the operator.
	TokensSkipped metric.Int64Counter

	// Submissions counts submission attempts. Use with attribute:
	//   attribute.String("status", "ok"|"rejected"|"error")
	Submissions metric.Int64Counter

	// --- Gauges ---

	// ExclusiveOps tracks how many exclusive operations (capture, analysis,
	// playback, submission) are in flight. For one session this is 0 or 1;
	// anything else indicates an exclusion bug.
	ExclusiveOps metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Capture
// and submission latencies run much longer than typical request latencies,
// so the buckets extend to a minute.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("recbooth.capture.duration",
		metric.WithDescription("Length of completed takes from capture start to stop."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("recbooth.analysis.duration",
		metric.WithDescription("Latency of take quality analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SubmissionDuration, err = m.Float64Histogram("recbooth.submission.duration",
		metric.WithDescription("Latency of the end-of-session batch upload."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TakesRecorded, err = m.Int64Counter("recbooth.takes.recorded",
		metric.WithDescription("Total completed takes."),
	); err != nil {
		return nil, err
	}
	if met.CaptureFailures, err = m.Int64Counter("recbooth.capture.failures",
		metric.WithDescription("Total failed capture starts by reason."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisRuns, err = m.Int64Counter("recbooth.analysis.runs",
		metric.WithDescription("Total analyzer invocations by verdict."),
	); err != nil {
		return nil, err
	}
	if met.TokensSkipped, err = m.Int64Counter("recbooth.tokens.skipped",
		metric.WithDescription("Total skip marks set by the operator."),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("recbooth.submissions",
		metric.WithDescription("Total submission attempts by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ExclusiveOps, err = m.Int64UpDownCounter("recbooth.exclusive_ops",
		metric.WithDescription("Exclusive operations currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware.
	if met.HTTPRequestDuration, err = m.Float64Histogram("recbooth.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily created package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first use from the globally registered meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on invalid instrument names,
			// which is a programming error caught by tests.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// WithStatus is a convenience for the common status attribute.
func WithStatus(status string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("status", status))
}
