package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/obiente/translate/scribe/internal/config"
	"github.com/obiente/translate/scribe/internal/protocol"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper"
	"github.com/obiente/translate/scribe/internal/whisper/mock"
)

func TestInjector_LoadsEngineOnce(t *testing.T) {
	cfg := config.Default()
	cfg.BeamSize = 2
	cfg.VADFilter = false

	eng := &mock.Engine{Segments: mock.Texts("wired")}
	loads := 0
	factory := func(wc whisper.Config, _ zerolog.Logger) (whisper.Engine, error) {
		loads++
		if wc.ModelPath != cfg.ModelPath || wc.Language != cfg.Language {
			t.Errorf("engine config = %+v", wc)
		}
		return eng, nil
	}

	injector := New(&cfg, zerolog.Nop(), factory)
	loop := do.MustInvoke[*stream.Loop](injector)
	if again := do.MustInvoke[*stream.Loop](injector); again != loop {
		t.Fatal("loop is not shared")
	}
	do.MustInvoke[whisper.Engine](injector)
	if loads != 1 {
		t.Fatalf("engine loaded %d times, want 1", loads)
	}

	var in, out bytes.Buffer
	if err := protocol.NewWriter(&in).Session([]byte{0x00, 0x10}); err != nil {
		t.Fatal(err)
	}
	if err := loop.Run(context.Background(), &in, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "wired\n") {
		t.Fatalf("output = %q", out.String())
	}
	opts := eng.Calls()[0].Opts
	if opts.BeamSize != 2 || opts.VADFilter {
		t.Fatalf("transcribe options = %+v", opts)
	}
}

func TestInjector_EngineLoadFailure(t *testing.T) {
	cfg := config.Default()
	factory := func(whisper.Config, zerolog.Logger) (whisper.Engine, error) {
		return nil, whisper.ErrEngineUnavailable
	}
	injector := New(&cfg, zerolog.Nop(), factory)
	_, err := do.Invoke[*stream.Loop](injector)
	if err == nil || !strings.Contains(err.Error(), whisper.ErrEngineUnavailable.Error()) {
		t.Fatalf("err = %v, want engine load failure", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("log output = %q", buf.String())
	}

	buf.Reset()
	l = NewLogger(&buf, "bogus")
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", l.GetLevel())
	}
}
