//go:build whisper_cpp

package whisper

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"strings"
	"sync"
	"time"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/obiente/translate/scribe/internal/audio"
)

var _ Engine = (*EngineCPP)(nil)

// EngineCPP is the whisper.cpp-backed implementation of Engine. The model is
// loaded once; each Transcribe call gets a fresh context from it.
type EngineCPP struct {
	model        whisperpkg.Model
	threads      uint
	language     string
	vadThreshold float64
	log          zerolog.Logger
	mu           sync.Mutex // whisper.cpp contexts on one model must not run concurrently
}

func NewEngine(cfg Config, logger zerolog.Logger) (Engine, error) {
	l := logger.With().Str("component", "whisper").Logger()

	threads := uint(runtime.NumCPU())
	if cfg.Threads > 0 {
		threads = uint(cfg.Threads)
		l.Info().Int("threads", cfg.Threads).Msg("whisper: using configured thread count")
	} else {
		l.Info().Uint("threads", threads).Msg("whisper: using default thread count (CPU cores)")
	}

	lang := cfg.Language
	if lang == "" {
		lang = "auto"
	}

	m, err := whisperpkg.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %q: %w", ErrEngineUnavailable, cfg.ModelPath, err)
	}

	l.Info().Str("model", cfg.ModelPath).Str("language", lang).Msg("whisper: model loaded successfully")
	return &EngineCPP{
		model:        m,
		threads:      threads,
		language:     lang,
		vadThreshold: cfg.VADThreshold,
		log:          l,
	}, nil
}

func (e *EngineCPP) Close() error {
	// Wait for an in-flight decode to let go of the model.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// Transcribe runs whisper.cpp on a worker goroutine and hands segments to the
// consumer as the new-segment callback fires. Stopping the range early aborts
// decoding at the next encoder pass.
func (e *EngineCPP) Transcribe(ctx context.Context, samples []float32, opts Options) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		if opts.VADFilter {
			before := len(samples)
			samples = audio.GateSilence(samples, audio.GateConfig{Threshold: e.vadThreshold})
			e.log.Debug().Int("samples", before).Int("voiced", len(samples)).Msg("whisper: vad filter applied")
		}
		if len(samples) == 0 {
			return
		}

		segs := streamSegments(ctx, func(ctx context.Context, emit func(Segment) bool) error {
			return e.process(ctx, samples, opts, emit)
		})
		for seg, err := range segs {
			if !yield(seg, err) {
				return
			}
		}
	}
}

func (e *EngineCPP) process(ctx context.Context, samples []float32, opts Options, emit func(Segment) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}

	lang := e.language
	if opts.Language != "" {
		lang = opts.Language
	}
	wctx.SetThreads(e.threads)
	if err := wctx.SetLanguage(lang); err != nil {
		e.log.Warn().Err(err).Str("language", lang).Msg("whisper: failed to set language, using default")
	}
	beam := opts.BeamSize
	if beam < 1 {
		beam = 1
	}
	wctx.SetBeamSize(beam)
	wctx.SetSplitOnWord(true)
	wctx.SetTokenTimestamps(true)

	start := time.Now()
	n := 0
	encoderBegin := func() bool {
		return ctx.Err() == nil
	}
	segCB := func(seg whisperpkg.Segment) {
		n++
		emit(Segment{
			Num:   seg.Num,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	if err := wctx.Process(samples, encoderBegin, segCB, nil); err != nil {
		if ctx.Err() == nil {
			e.log.Error().Err(err).Int("samples", len(samples)).Msg("whisper: process failed")
		}
		return fmt.Errorf("process audio: %w", err)
	}

	e.log.Debug().
		Int("segments", n).
		Int("samples", len(samples)).
		Dur("took", time.Since(start)).
		Msg("whisper: transcription complete")
	return nil
}
