package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/tableloop/internal/looper"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades to a WebSocket. The first client message is the
// Params; every interval the node ticks and the output is sent as JSON. The
// stream closes normally once an output reports loop_complete.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var p looper.Params
	if err := conn.ReadJSON(&p); err != nil {
		s.logger.Debug("stream params unreadable", "error", err)
		closeStream(conn, websocket.CloseUnsupportedData, "invalid params")
		return
	}

	ctx, cancel := context.WithCancel(s.requestContext(r))
	defer cancel()

	// The reader notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.cfg.StreamInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		out := s.tick(ctx, e, p)
		// A forced reload resets the cursor, so it only applies to the
		// first tick of the stream.
		p.ForceRefresh = false
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug("stream write failed", "error", err)
			return
		}
		if out.Complete {
			closeStream(conn, websocket.CloseNormalClosure, "loop complete")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
