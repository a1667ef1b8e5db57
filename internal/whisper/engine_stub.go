//go:build !whisper_cpp

package whisper

import (
	"context"
	"iter"

	"github.com/rs/zerolog"
)

// Default stub (no cgo) so the project builds without whisper_cpp tag.
type stubEngine struct {
	log zerolog.Logger
}

func NewEngine(cfg Config, logger zerolog.Logger) (Engine, error) {
	l := logger.With().Str("component", "whisper").Logger()
	l.Warn().Str("model", cfg.ModelPath).Msg("whisper: built without whisper_cpp tag, transcripts will be empty")
	return &stubEngine{log: l}, nil
}

func (e *stubEngine) Close() error { return nil }

func (e *stubEngine) Transcribe(ctx context.Context, samples []float32, opts Options) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Segment{}, err)
			return
		}
		e.log.Debug().Int("samples", len(samples)).Msg("whisper: stub transcription")
	}
}
