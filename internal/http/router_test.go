package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/obiente/translate/scribe/internal/audio"
	"github.com/obiente/translate/scribe/internal/output"
	"github.com/obiente/translate/scribe/internal/protocol"
	"github.com/obiente/translate/scribe/internal/stream"
	"github.com/obiente/translate/scribe/internal/whisper/mock"
	"github.com/obiente/translate/scribe/internal/ws"
)

func newTestServer(t *testing.T, eng *mock.Engine) (*httptest.Server, *ws.Server) {
	t.Helper()
	loop := stream.New(eng, stream.WithLogger(zerolog.Nop()))
	wss := ws.NewServer(loop, zerolog.Nop())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "scribe_sessions_total 0\n")
	})
	srv := httptest.NewServer(NewRouter(wss, metrics))
	t.Cleanup(srv.Close)
	return srv, wss
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &mock.Engine{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok":true`) {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := newTestServer(t, &mock.Engine{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "scribe_sessions_total") {
		t.Fatalf("metrics body = %q", body)
	}
}

func TestWebsocketStream(t *testing.T) {
	eng := &mock.Engine{Segments: mock.Texts("hello", "world")}
	srv, _ := newTestServer(t, eng)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var in bytes.Buffer
	if err := protocol.NewWriter(&in).Session(audio.EncodePCM16LE([]float32{0.1, 0.2, 0.3})); err != nil {
		t.Fatal(err)
	}
	// Split mid-frame to check that message boundaries do not matter.
	raw := in.Bytes()
	for _, part := range [][]byte{raw[:3], raw[3:]} {
		if err := conn.WriteMessage(websocket.BinaryMessage, part); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got []string
	for len(got) < 3 {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %v: %v", got, err)
		}
		if mt != websocket.TextMessage {
			t.Fatalf("message type = %d, want text", mt)
		}
		got = append(got, string(msg))
	}
	want := []string{"hello", "world", output.CompletionMarker}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("messages = %v, want %v", got, want)
	}
}

func TestWebsocketProtocolViolationClosesStream(t *testing.T) {
	srv, wss := newTestServer(t, &mock.Engine{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xff}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseInternalServerErr) {
		t.Fatalf("err = %v, want internal-error close", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wss.Shutdown(ctx); err != nil {
		t.Fatalf("stream handler did not return: %v", err)
	}
}
