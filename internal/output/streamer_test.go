package output

import (
	"bytes"
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"", "", false},
		{"   ", "", false},
		{"\thello\n", "hello", true},
		{" hello world ", "hello world", true},
		{"\r\n", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%q) = (%q, %v); want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStreamer_FlushesEachLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamer(&buf)

	if ok, err := s.Segment(" hello "); err != nil || !ok {
		t.Fatalf("Segment = (%v, %v)", ok, err)
	}
	if buf.String() != "hello\n" {
		t.Fatalf("after first segment: %q", buf.String())
	}

	if ok, err := s.Segment("   "); err != nil || ok {
		t.Fatalf("whitespace segment = (%v, %v), want dropped", ok, err)
	}
	if _, err := s.Segment("world"); err != nil {
		t.Fatal(err)
	}
	if s.Lines() != 2 {
		t.Fatalf("Lines() = %d, want 2", s.Lines())
	}
	if err := s.Complete(); err != nil {
		t.Fatal(err)
	}

	want := "hello\nworld\n" + CompletionMarker + "\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
	if s.Lines() != 0 {
		t.Fatalf("Lines() after Complete = %d, want 0", s.Lines())
	}
}

func TestStreamer_NoMarker(t *testing.T) {
	var buf bytes.Buffer
	s := NewStreamer(&buf, WithCompletionMarker(""))
	s.Segment("only text")
	if err := s.Complete(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "only text\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamer_WriteError(t *testing.T) {
	s := NewStreamer(failWriter{})
	if _, err := s.Segment("hello"); err == nil {
		t.Fatal("expected write error")
	}
	if s.Lines() != 0 {
		t.Fatalf("failed line counted: %d", s.Lines())
	}
}
