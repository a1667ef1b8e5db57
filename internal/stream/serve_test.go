package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/obiente/translate/scribe/internal/output"
	"github.com/obiente/translate/scribe/internal/whisper/mock"
)

func TestServe_ReturnsOnCancelWhileInputIdle(t *testing.T) {
	pr, pw := io.Pipe()
	// The write end stays open, as with a host that never closes stdin.
	t.Cleanup(func() { pw.Close() })

	loop := New(&mock.Engine{}, WithLogger(zerolog.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Serve(ctx, pr, io.Discard) }()

	// Open a session so the loop is parked on a read mid-stream.
	if _, err := pw.Write([]byte{0x01}); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_CleanEndOfInput(t *testing.T) {
	eng := &mock.Engine{Segments: mock.Texts("hello")}
	var out bytes.Buffer
	loop := New(eng, WithLogger(zerolog.Nop()))

	err := loop.Serve(context.Background(), bytes.NewReader(session(t, pcm(0.1, 0.2))), &out)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	want := "hello\n" + output.CompletionMarker + "\n"
	if got := out.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestServe_PassesThroughRunError(t *testing.T) {
	loop := New(&mock.Engine{}, WithLogger(zerolog.Nop()))
	err := loop.Serve(context.Background(), strings.NewReader("\xff"), io.Discard)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("Serve = %v, want ErrProtocolViolation", err)
	}
}
