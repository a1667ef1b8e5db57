// Package mock provides a test double for whisper.Engine.
//
// Engine yields scripted segments and records every Transcribe call so tests
// can assert on the samples and options the caller passed in.
//
//	eng := &mock.Engine{Segments: []whisper.Segment{{Text: "hello"}}}
//	loop := stream.New(eng)
package mock

import (
	"context"
	"iter"
	"sync"

	"github.com/obiente/translate/scribe/internal/whisper"
)

// TranscribeCall records a single invocation of Engine.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the decoded audio.
	Samples []float32
	Opts    whisper.Options
}

// Engine is a mock implementation of whisper.Engine.
type Engine struct {
	mu sync.Mutex

	// Segments are yielded by every call unless Responses has an entry for it.
	Segments []whisper.Segment

	// Responses, when set, scripts the segments of the n-th call (0-based).
	Responses [][]whisper.Segment

	// Err is yielded after the segments, if non-nil.
	Err error

	// When PanicValue is non-nil the sequence panics with it once PanicAfter
	// segments were yielded.
	PanicAfter int
	PanicValue any

	// OnYield runs after the consumer handled segment i of the current call.
	OnYield func(i int)

	TranscribeCalls []TranscribeCall
	Stopped         int // calls the consumer abandoned before the end
	Closed          bool
}

func (e *Engine) Transcribe(ctx context.Context, samples []float32, opts whisper.Options) iter.Seq2[whisper.Segment, error] {
	e.mu.Lock()
	call := len(e.TranscribeCalls)
	e.TranscribeCalls = append(e.TranscribeCalls, TranscribeCall{
		Samples: append([]float32(nil), samples...),
		Opts:    opts,
	})
	segs := e.Segments
	if call < len(e.Responses) {
		segs = e.Responses[call]
	}
	e.mu.Unlock()

	return func(yield func(whisper.Segment, error) bool) {
		for i, s := range segs {
			if e.PanicValue != nil && e.PanicAfter == i {
				panic(e.PanicValue)
			}
			if err := ctx.Err(); err != nil {
				yield(whisper.Segment{}, err)
				return
			}
			if !yield(s, nil) {
				e.mu.Lock()
				e.Stopped++
				e.mu.Unlock()
				return
			}
			if e.OnYield != nil {
				e.OnYield(i)
			}
		}
		if e.PanicValue != nil && e.PanicAfter == len(segs) {
			panic(e.PanicValue)
		}
		if e.Err != nil {
			yield(whisper.Segment{}, e.Err)
		}
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}

// Calls returns a snapshot of the recorded Transcribe calls. Thread-safe.
func (e *Engine) Calls() []TranscribeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TranscribeCall(nil), e.TranscribeCalls...)
}

// Texts is a convenience for building scripted segments.
func Texts(texts ...string) []whisper.Segment {
	out := make([]whisper.Segment, len(texts))
	for i, t := range texts {
		out[i] = whisper.Segment{Num: i, Text: t}
	}
	return out
}

var _ whisper.Engine = (*Engine)(nil)
