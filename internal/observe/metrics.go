// Package observe holds the service's OpenTelemetry metric instruments and
// the Prometheus bridge used to scrape them.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/obiente/translate/scribe"

// Session outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeAbandoned = "abandoned"
	OutcomeFailed    = "failed"
)

// Metrics holds all metric instruments. All fields are safe for concurrent use.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Sessions counts finished sessions. Use with attribute.String("outcome", ...).
	Sessions metric.Int64Counter

	// Frames counts protocol frames read. Use with attribute.String("kind", ...).
	Frames metric.Int64Counter

	AudioBytes metric.Int64Counter

	// SegmentLines counts text lines written to the output channel.
	SegmentLines metric.Int64Counter

	// TranscriptionDuration spans from END to the last segment.
	TranscriptionDuration metric.Float64Histogram

	// FirstSegmentLatency spans from END to the first line written.
	FirstSegmentLatency metric.Float64Histogram

	ActiveSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("scribe.sessions",
		metric.WithDescription("Sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("scribe.frames",
		metric.WithDescription("Protocol frames read by kind."),
	); err != nil {
		return nil, err
	}
	if met.AudioBytes, err = m.Int64Counter("scribe.audio.bytes",
		metric.WithDescription("PCM bytes received in AUDIO frames."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.SegmentLines, err = m.Int64Counter("scribe.segment.lines",
		metric.WithDescription("Recognized text lines written."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("scribe.transcription.duration",
		metric.WithDescription("Time from END to the end of transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FirstSegmentLatency, err = m.Float64Histogram("scribe.first_segment.latency",
		metric.WithDescription("Time from END to the first text line."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("scribe.active_sessions",
		metric.WithDescription("Sessions between START and their end."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) RecordFrame(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordAudio(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.AudioBytes.Add(ctx, int64(n))
}

func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded closes a session opened with SessionStarted.
func (m *Metrics) SessionEnded(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordLine(ctx context.Context, sinceEnd time.Duration, first bool) {
	if m == nil {
		return
	}
	m.SegmentLines.Add(ctx, 1)
	if first {
		m.FirstSegmentLatency.Record(ctx, sinceEnd.Seconds())
	}
}

func (m *Metrics) RecordTranscription(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Record(ctx, d.Seconds())
}
