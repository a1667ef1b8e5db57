// Package stream runs the session state machine: it reads frames from the
// input, accumulates one session's audio at a time and writes the
// recognized lines followed by the completion marker.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/observe"
	"github.com/obiente/translate/scribe/internal/output"
	"github.com/obiente/translate/scribe/internal/protocol"
	"github.com/obiente/translate/scribe/internal/whisper"
)

var (
	// ErrProtocolViolation ends the loop when a frame cannot be accepted in
	// the current state, including any unrecognized tag.
	ErrProtocolViolation = errors.New("stream: protocol violation")

	// ErrSessionTooLarge ends the loop when a session outgrows the configured limit.
	ErrSessionTooLarge = errors.New("stream: session exceeds size limit")

	// ErrEnginePanic wraps a panic recovered while consuming the engine output.
	ErrEnginePanic = errors.New("stream: engine panicked")
)

type State int

const (
	StateIdle State = iota
	StateReceiving
	StateTranscribing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateTranscribing:
		return "transcribing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Option func(*Loop)

func WithLogger(l zerolog.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// WithMetrics records session metrics on m. A nil m records nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(lp *Loop) { lp.metrics = m }
}

func WithTranscribeOptions(o whisper.Options) Option {
	return func(lp *Loop) { lp.opts = o }
}

// WithMaxSessionBytes bounds the audio one session may accumulate. Zero
// means unbounded.
func WithMaxSessionBytes(n int64) Option {
	return func(lp *Loop) { lp.maxSession = n }
}

// WithMaxChunkBytes bounds the declared length of a single AUDIO frame.
func WithMaxChunkBytes(n uint32) Option {
	return func(lp *Loop) { lp.maxChunk = n }
}

// WithCompletionMarker overrides the line written after each session. An
// empty marker writes nothing.
func WithCompletionMarker(marker string) Option {
	return func(lp *Loop) { lp.marker = marker }
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(from, to State)) Option {
	return func(lp *Loop) { lp.onState = fn }
}

// Loop holds the per-process settings. It keeps no per-stream state, so one
// Loop may serve several streams, each through its own Run call.
type Loop struct {
	engine     whisper.Engine
	log        zerolog.Logger
	metrics    *observe.Metrics
	opts       whisper.Options
	maxSession int64
	maxChunk   uint32
	marker     string
	onState    func(from, to State)
}

func New(engine whisper.Engine, opts ...Option) *Loop {
	l := &Loop{
		engine: engine,
		log:    log.Logger,
		opts:   whisper.DefaultOptions(),
		marker: output.CompletionMarker,
	}
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.With().Str("component", "stream").Logger()
	return l
}

// Run serves one stream until it ends. A clean end of input, including one
// in the middle of a session, returns nil. Any other outcome is returned as
// an error and the loop never reads from in again.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	r := &runner{
		Loop: l,
		rd:   protocol.NewReader(in, protocol.WithMaxChunkBytes(l.maxChunk)),
		out:  output.NewStreamer(out, output.WithCompletionMarker(l.marker)),
		acc:  audio.NewAccumulator(),
	}
	err := r.run(ctx)
	if r.state == StateReceiving || r.state == StateTranscribing {
		outcome := observe.OutcomeFailed
		if err == nil {
			outcome = observe.OutcomeAbandoned
		}
		l.metrics.SessionEnded(ctx, outcome)
	}
	r.setState(StateClosed)
	return err
}

// Serve is Run for inputs whose reads cannot be interrupted, such as a
// process's stdin. It returns ctx.Err() as soon as ctx is done, leaving the
// blocked Run behind; the caller is expected to exit without touching in or
// out again.
func (l *Loop) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, in, out) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		l.log.Info().Msg("context done, leaving input behind")
		return ctx.Err()
	}
}

type runner struct {
	*Loop
	rd       *protocol.Reader
	out      *output.Streamer
	acc      *audio.Accumulator
	state    State
	sessions int
}

func (r *runner) setState(s State) {
	if r.state == s {
		return
	}
	from := r.state
	r.state = s
	r.log.Debug().Stringer("from", from).Stringer("to", s).Msg("state change")
	if r.onState != nil {
		r.onState(from, s)
	}
}

func (r *runner) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := r.rd.Next()
		if errors.Is(err, io.EOF) {
			if r.state == StateReceiving {
				r.log.Info().Int("session", r.sessions).Int("bytes", r.acc.Len()).Msg("input closed mid-session, discarding audio")
				r.acc.Finalize()
			} else {
				r.log.Info().Int("sessions", r.sessions).Msg("input closed")
			}
			return nil
		}
		if err != nil {
			r.log.Error().Err(err).Stringer("state", r.state).Msg("read failed")
			return err
		}
		r.metrics.RecordFrame(ctx, f.Kind.String())

		if err := r.handle(ctx, f); err != nil {
			return err
		}
	}
}

func (r *runner) handle(ctx context.Context, f protocol.Frame) error {
	switch {
	case f.Kind == protocol.KindStart && r.state == StateIdle:
		r.sessions++
		r.acc.Finalize()
		r.metrics.SessionStarted(ctx)
		r.setState(StateReceiving)
		return nil

	case f.Kind == protocol.KindAudio && r.state == StateReceiving:
		if r.maxSession > 0 && int64(r.acc.Len()+len(f.Payload)) > r.maxSession {
			r.log.Error().Int("session", r.sessions).Int("bytes", r.acc.Len()+len(f.Payload)).Int64("limit", r.maxSession).Msg("session too large")
			return fmt.Errorf("%w: limit %d bytes", ErrSessionTooLarge, r.maxSession)
		}
		r.acc.Append(f.Payload)
		r.metrics.RecordAudio(ctx, len(f.Payload))
		return nil

	case f.Kind == protocol.KindEnd && r.state == StateReceiving:
		if err := r.finish(ctx); err != nil {
			return err
		}
		r.metrics.SessionEnded(ctx, observe.OutcomeCompleted)
		r.setState(StateIdle)
		return nil
	}

	r.log.Error().Stringer("frame", f).Stringer("state", r.state).Msg("protocol violation")
	if f.Kind == protocol.KindUnknown {
		return fmt.Errorf("%w: unknown tag 0x%02x", ErrProtocolViolation, f.Tag)
	}
	return fmt.Errorf("%w: %s frame while %s", ErrProtocolViolation, f.Kind, r.state)
}

// finish transcribes the accumulated session and writes the marker.
func (r *runner) finish(ctx context.Context) error {
	r.setState(StateTranscribing)
	pcm := r.acc.Finalize()
	samples := audio.DecodePCM16LE(pcm)
	ended := time.Now()

	if len(samples) == 0 {
		r.log.Debug().Int("session", r.sessions).Msg("empty session, skipping engine")
	} else if err := r.transcribe(ctx, samples, ended); err != nil {
		return err
	}

	if err := r.out.Complete(); err != nil {
		r.log.Error().Err(err).Msg("write completion marker failed")
		return fmt.Errorf("stream: write marker: %w", err)
	}
	r.log.Info().
		Int("session", r.sessions).
		Int("bytes", len(pcm)).
		Dur("took", time.Since(ended)).
		Msg("session complete")
	return nil
}

func (r *runner) transcribe(ctx context.Context, samples []float32, ended time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Interface("panic", p).
				Str("stack", string(debug.Stack())).
				Int("session", r.sessions).
				Msg("engine panicked")
			err = fmt.Errorf("%w: %v", ErrEnginePanic, p)
		}
	}()

	lines := 0
	for seg, segErr := range r.engine.Transcribe(ctx, samples, r.opts) {
		if segErr != nil {
			r.log.Error().Err(segErr).Int("session", r.sessions).Int("samples", len(samples)).Msg("transcription failed")
			return fmt.Errorf("stream: transcribe: %w", segErr)
		}
		wrote, werr := r.out.Segment(seg.Text)
		if werr != nil {
			r.log.Error().Err(werr).Msg("write segment failed")
			return fmt.Errorf("stream: write segment: %w", werr)
		}
		if wrote {
			lines++
			r.metrics.RecordLine(ctx, time.Since(ended), lines == 1)
		}
	}
	r.metrics.RecordTranscription(ctx, time.Since(ended))
	r.log.Debug().Int("session", r.sessions).Int("lines", lines).Int("samples", len(samples)).Msg("transcription done")
	return nil
}
