package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"grocery-autocart/internal/automation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WatchSession handles GET /api/sessions/{id}/watch: upgrades to a websocket
// and streams the persisted session state once per second so a dashboard can
// follow a long-running automation flow live.
func (h *Handler) WatchSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if _, err := h.auto.Session(r.Context(), sessionID); err != nil {
		if errors.Is(err, automation.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Session lookup failed", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("watch connected", zap.String("session_id", sessionID))

	// Drain client frames so close messages are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("watch disconnected", zap.String("session_id", sessionID))
			return
		case <-ticker.C:
			sess, err := h.auto.Session(r.Context(), sessionID)
			if err != nil {
				// Session was cleaned up underneath the watcher.
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session gone"),
					time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteJSON(sess.Redacted()); err != nil {
				return
			}
		}
	}
}
