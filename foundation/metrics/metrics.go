// Package metrics holds the OpenTelemetry instruments recorded by the
// monitoring loop. Nothing recorded here contains audio; only counts,
// durations and outcome labels.
//
// Tests should build a [Metrics] with [New] and a ManualReader backed
// provider instead of relying on [Default].
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/superfeelapi/goVoiceStress"

// Tick outcomes.
const (
	OutcomeAnalyzed      = "analyzed"
	OutcomeSilent        = "silent"
	OutcomeNoVoice       = "no_voice"
	OutcomeCaptureFailed = "capture_failed"
	OutcomeCancelled     = "cancelled"
)

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	Ticks              metric.Int64Counter
	Detections         metric.Int64Counter
	InferenceFallbacks metric.Int64Counter
	ActiveSessions     metric.Int64UpDownCounter
	AnalysisDuration   metric.Float64Histogram
	InferenceDuration  metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// New creates the instruments on the given provider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Ticks, err = m.Int64Counter("voicestress.ticks",
		metric.WithDescription("Monitoring ticks by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("voicestress.detections",
		metric.WithDescription("Non-calm stress levels delivered, by level and strategy."),
	); err != nil {
		return nil, err
	}
	if met.InferenceFallbacks, err = m.Int64Counter("voicestress.inference.fallbacks",
		metric.WithDescription("Ticks that fell back to rule based scoring, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voicestress.active_sessions",
		metric.WithDescription("Number of running monitoring sessions."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("voicestress.analysis.duration",
		metric.WithDescription("Feature extraction and classification latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("voicestress.inference.duration",
		metric.WithDescription("Emotion model inference latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns a package level instance built on the global provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordTick(ctx context.Context, outcome string) {
	m.Ticks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordDetection(ctx context.Context, level, strategy string) {
	m.Detections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level),
		attribute.String("strategy", strategy),
	))
}

func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.InferenceFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordAnalysis(ctx context.Context, d time.Duration) {
	m.AnalysisDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) RecordInference(ctx context.Context, d time.Duration) {
	m.InferenceDuration.Record(ctx, d.Seconds())
}
