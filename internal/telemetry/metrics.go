package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vadcore metrics.
const meterName = "github.com/vadcore/segmenter"

// Metrics holds all OpenTelemetry instruments for the segmentation engine
// and driver loop. All fields are safe for concurrent use.
type Metrics struct {
	// SegmentsEmitted counts non-empty segments produced by the
	// segmentation state machine. Use with attribute "detector".
	SegmentsEmitted metric.Int64Counter

	// SegmentDuration tracks a closed segment's frame-count duration in
	// milliseconds.
	SegmentDuration metric.Float64Histogram

	// ActivityRatio records the activity window's voiced ratio on every
	// step, for tuning activity_threshold.
	ActivityRatio metric.Float64Histogram

	// Timeouts counts Run invocations that ended via ErrTimeout with no
	// voice ever arriving.
	Timeouts metric.Int64Counter

	// DiscardedCandidates counts accumulating candidates dropped for
	// falling short of min_duration_ms.
	DiscardedCandidates metric.Int64Counter

	// DroppedAudioChunks counts microphone capture chunks dropped because
	// the HTTP consumer fell behind (spec §5 "backpressure").
	DroppedAudioChunks metric.Int64Counter

	// ActiveSignals tracks the number of audio signals currently being
	// processed by the eventbus worker.
	ActiveSignals metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request latency by method and path.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBucketsMs = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}

// NewMetrics creates a fully initialised Metrics struct from mp. Returns an
// error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.SegmentsEmitted, err = m.Int64Counter("vadcore.segments.emitted",
		metric.WithDescription("Total non-empty segments emitted by the segmentation engine."),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("vadcore.segment.duration",
		metric.WithDescription("Duration of emitted segments."),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(latencyBucketsMs...),
	); err != nil {
		return nil, err
	}
	if met.ActivityRatio, err = m.Float64Histogram("vadcore.activity.ratio",
		metric.WithDescription("Voiced-frame ratio observed by the activity window."),
	); err != nil {
		return nil, err
	}
	if met.Timeouts, err = m.Int64Counter("vadcore.segment.timeouts",
		metric.WithDescription("Total Run invocations that timed out waiting for voice."),
	); err != nil {
		return nil, err
	}
	if met.DiscardedCandidates, err = m.Int64Counter("vadcore.segment.discarded",
		metric.WithDescription("Total candidate segments discarded for falling short of min_duration_ms."),
	); err != nil {
		return nil, err
	}
	if met.DroppedAudioChunks, err = m.Int64Counter("vadcore.micsource.dropped_chunks",
		metric.WithDescription("Total captured audio chunks dropped due to a slow consumer."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSignals, err = m.Int64UpDownCounter("vadcore.active_signals",
		metric.WithDescription("Number of audio signals currently being processed."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vadcore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, creating it on
// first call using otel.GetMeterProvider. Tests should use NewMetrics with
// a custom MeterProvider instead, to avoid cross-test pollution.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSegment is a convenience method recording a single emitted
// segment's count and duration.
func (m *Metrics) RecordSegment(ctx context.Context, detector string, durationMs float64) {
	m.SegmentsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("detector", detector)))
	m.SegmentDuration.Record(ctx, durationMs)
}
