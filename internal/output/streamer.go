// Package output writes recognized text to the service's output channel.
// Every line is flushed as soon as it is written so the host can act on it
// before the rest of the session is decoded.
package output

import (
	"bufio"
	"io"
	"strings"
)

// CompletionMarker closes every completed session.
const CompletionMarker = "TRANSCRIBED_FINISH"

// Normalize trims surrounding whitespace and reports whether anything is left.
func Normalize(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, t != ""
}

type Option func(*Streamer)

// WithCompletionMarker replaces the marker line. An empty marker disables it.
func WithCompletionMarker(marker string) Option {
	return func(s *Streamer) { s.marker = marker }
}

// Streamer is not safe for concurrent use.
type Streamer struct {
	w      *bufio.Writer
	marker string
	lines  int
}

func NewStreamer(w io.Writer, opts ...Option) *Streamer {
	s := &Streamer{w: bufio.NewWriter(w), marker: CompletionMarker}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Segment writes text as one line and flushes. Text that is empty after
// trimming is dropped and reported as not written.
func (s *Streamer) Segment(text string) (bool, error) {
	line, ok := Normalize(text)
	if !ok {
		return false, nil
	}
	if err := s.writeLine(line); err != nil {
		return false, err
	}
	s.lines++
	return true, nil
}

// Complete writes the completion marker and resets the line count.
func (s *Streamer) Complete() error {
	s.lines = 0
	if s.marker == "" {
		return s.w.Flush()
	}
	return s.writeLine(s.marker)
}

// Lines reports how many segment lines the current session produced.
func (s *Streamer) Lines() int { return s.lines }

func (s *Streamer) writeLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}
