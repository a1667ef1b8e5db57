package http

import (
	"encoding/json"
	"net/http"

	"github.com/obiente/translate/scribe/internal/ws"
)

// NewRouter serves health, the websocket stream and, when metrics is
// non-nil, the Prometheus scrape endpoint.
func NewRouter(wss *ws.Server, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	// Streaming transcription WebSocket
	mux.HandleFunc("/ws/transcribe", wss.Handle)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
