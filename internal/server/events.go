package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleEvents streams session snapshots over a websocket: the current one
// on connect, then one per state change until either side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("events: websocket upgrade failed", "session", sess.ID(), "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	if err := conn.WriteJSON(sess.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("events: write failed", "session", sess.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
