package whisper

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrEngineUnavailable is returned when the speech engine cannot be loaded.
var ErrEngineUnavailable = errors.New("whisper: engine unavailable")

// Segment is one recognized span of speech.
type Segment struct {
	Num   int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Options are the per-call decoding settings.
type Options struct {
	BeamSize  int
	VADFilter bool
	// Language overrides the engine's configured language when set.
	Language string
}

// DefaultOptions returns single-hypothesis decoding with voice-activity
// filtering enabled.
func DefaultOptions() Options {
	return Options{BeamSize: 1, VADFilter: true}
}

// Config controls how the engine is loaded.
type Config struct {
	ModelPath    string
	Language     string
	Threads      int     // 0 uses runtime.NumCPU
	VADThreshold float64 // RMS level used when Options.VADFilter is set
}

// Engine is a small interface for whisper transcription.
// Implementations may be a no-op (stub) or backed by whisper.cpp (build tag: whisper_cpp).
type Engine interface {
	// Transcribe runs inference over 16 kHz mono samples. Segments are produced
	// lazily, in order; the consumer may act on each one before the next is
	// decoded. A failure is yielded as the last element with a zero Segment.
	Transcribe(ctx context.Context, samples []float32, opts Options) iter.Seq2[Segment, error]
	Close() error
}
