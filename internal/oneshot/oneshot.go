// Package oneshot transcribes a single audio file as one session and writes
// the recognized lines to stdout.
package oneshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/protocol"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper"
)

// Exit statuses.
const (
	ExitOK           = 0
	ExitFault        = 1
	ExitUsage        = 2
	ExitFileNotFound = 3
)

// UsageMarker is printed on stdout when no path is given so callers can tell
// a usage error from a failed transcription.
const UsageMarker = "USAGE_ERROR"

// Command holds what Run needs besides its arguments.
type Command struct {
	Stdout io.Writer
	Log    zerolog.Logger

	// NewEngine is called only once the input file is known to exist.
	NewEngine func() (whisper.Engine, error)

	LoopOptions []stream.Option
}

// Run transcribes args[0] and returns the process exit status.
func (c *Command) Run(ctx context.Context, args []string) (code int) {
	defer func() {
		if p := recover(); p != nil {
			c.Log.Error().Interface("panic", p).Str("stack", string(debug.Stack())).Msg("unhandled panic")
			code = ExitFault
		}
	}()

	if len(args) < 1 || args[0] == "" {
		c.Log.Error().Msg("missing audio file path argument")
		fmt.Fprintln(c.Stdout, UsageMarker)
		return ExitUsage
	}
	path := args[0]
	l := c.Log.With().Str("path", path).Logger()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.Error().Str("marker", "FILE_NOT_FOUND").Msg("FILE_NOT_FOUND: file does not exist")
			return ExitFileNotFound
		}
		l.Error().Err(err).Msg("stat input file")
		return ExitFault
	}

	pcm, err := readPCM(path)
	if err != nil {
		l.Error().Err(err).Msg("read input file")
		return ExitFault
	}

	eng, err := c.NewEngine()
	if err != nil {
		l.Error().Err(err).Msg("load engine")
		return ExitFault
	}
	defer eng.Close()

	var in bytes.Buffer
	if err := protocol.NewWriter(&in).Session(pcm); err != nil {
		l.Error().Err(err).Msg("encode session")
		return ExitFault
	}

	opts := append([]stream.Option{stream.WithLogger(l)}, c.LoopOptions...)
	opts = append(opts, stream.WithCompletionMarker(""))
	l.Info().Int("bytes", len(pcm)).Msg("transcribing")
	if err := stream.New(eng, opts...).Run(ctx, &in, c.Stdout); err != nil {
		l.Error().Err(err).Msg("transcription failed")
		return ExitFault
	}
	return ExitOK
}

// readPCM returns the file as 16 kHz s16le PCM. WAV files are decoded,
// down-mixed and resampled; anything else is taken as raw PCM already.
func readPCM(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !audio.IsWAV(b) {
		return b, nil
	}
	samples, sr, err := audio.DecodeWAVToFloat32(b)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if sr != audio.SampleRate {
		samples = audio.ResampleLinear(samples, sr, audio.SampleRate)
	}
	return audio.EncodePCM16LE(samples), nil
}
