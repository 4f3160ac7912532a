package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mnohosten/tupledb/pkg/logger"
)

// WebSocket upgrader with 1KB buffers that accepts any origin
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (can be restricted in production)
		return true
	},
}

// Watch upgrades the connection and relays commit events until the client
// disconnects or the broker shuts down.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Get().Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := h.db.Watch(64)
	defer sub.Close()

	// Drain (and discard) client frames so closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
