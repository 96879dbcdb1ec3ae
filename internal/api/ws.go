package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/crucible-hq/crucible/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The voice provider connects from its own origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// llmWebsocket upgrades the connection and runs one relay session for the
// call until the peer disconnects.
func (s *Server) llmWebsocket(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "call_id")
	if callID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "call_id missing from path"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		s.logger.Warn("websocket upgrade failed", "call_id", callID, "error", err)
		return
	}
	defer conn.Close()

	sess := relay.NewSession(callID, conn, s.deps.Generator, s.logger)
	if err := sess.Run(); err != nil {
		s.logger.Error("relay session error", "call_id", callID, "error", err)
	}
}
