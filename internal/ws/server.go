package ws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Runner serves one framed byte stream; *stream.Loop satisfies it.
type Runner interface {
	Run(ctx context.Context, in io.Reader, out io.Writer) error
}

// Server carries the command stream over websocket connections. Binary
// messages are concatenated into the input stream, so frames may span
// messages. Every output line goes back as one text message.
type Server struct {
	runner   Runner
	upgrader websocket.Upgrader
	log      zerolog.Logger

	// ctx is the parent of every stream; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewServer(runner Runner, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 16,
			WriteBufferSize: 1024 * 16,
		},
		log: logger.With().Str("component", "ws").Logger(),
	}
}

func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	l := s.log.With().Str("remote", r.RemoteAddr).Logger()
	l.Info().Msg("ws stream opened")

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(readTimeout)); return nil })

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	pr, pw := io.Pipe()
	go s.pump(conn, pw, l)
	// On shutdown the loop sees end of input and abandons any open session.
	stop := context.AfterFunc(ctx, func() { _ = pw.Close() })
	defer stop()

	out := &lineWriter{conn: conn}
	err = s.runner.Run(ctx, pr, out)
	// Unblock pump if the loop stopped before the client closed.
	_ = pr.CloseWithError(io.ErrClosedPipe)

	code, reason := websocket.CloseNormalClosure, ""
	switch {
	case s.ctx.Err() != nil:
		l.Info().Msg("ws stream closed by shutdown")
		code, reason = websocket.CloseGoingAway, "server shutting down"
	case err != nil:
		l.Error().Err(err).Msg("ws stream failed")
		code, reason = websocket.CloseInternalServerErr, "stream failed"
	default:
		l.Info().Msg("ws stream closed")
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeTimeout))
}

// Shutdown refuses new streams, ends the open ones and waits for their
// handlers to return or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump copies binary messages into pw until the client goes away, at which
// point the loop sees a clean end of input.
func (s *Server) pump(conn *websocket.Conn, pw *io.PipeWriter, l zerolog.Logger) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Debug().Err(err).Msg("ws read ended")
			}
			_ = pw.Close()
			return
		}
		// Bump read deadline on any activity
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if mt != websocket.BinaryMessage {
			l.Warn().Int("type", mt).Msg("ws: ignoring non-binary message")
			continue
		}
		if _, err := pw.Write(data); err != nil {
			return
		}
	}
}

// lineWriter sends each complete line as one text message.
type lineWriter struct {
	conn *websocket.Conn
	buf  bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := w.buf.Next(i + 1)
		_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := w.conn.WriteMessage(websocket.TextMessage, line[:i]); err != nil {
			if errors.Is(err, websocket.ErrCloseSent) {
				return 0, io.ErrClosedPipe
			}
			return 0, err
		}
	}
}
