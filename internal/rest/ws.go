package rest

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"market-intel/internal/domain"
	"market-intel/internal/hub"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Ping period must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxClientMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin subscribers are expected; frames are public data.
		return true
	},
}

// Stream upgrades to WebSocket and drains a subject sink into the peer.
// (GET /v1/stream/:subject)
func (h *Handler) Stream(logger *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		subject := strings.TrimSpace(c.Param("subject"))
		if strings.EqualFold(subject, domain.MarketSubject) {
			subject = domain.MarketSubject
		} else {
			subject = strings.ToUpper(subject)
			if !domain.IsSubjectSymbol(subject) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid subject"})
			}
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil // upgrader already wrote the error response
		}

		sink := h.hub.Subscribe(subject)
		logger.Info("stream_opened", "subject", subject, "sink_id", sink.ID())

		go h.writePump(conn, sink, logger)
		go h.readPump(conn, sink, logger)
		return nil
	}
}

// readPump discards client messages and detects disconnects.
func (h *Handler) readPump(conn *websocket.Conn, sink *hub.Sink, logger *slog.Logger) {
	defer func() {
		h.hub.Unsubscribe(sink)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxClientMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("stream_read_failed", "sink_id", sink.ID(), "error", err.Error())
			}
			return
		}
	}
}

// writePump drains the sink queue into the peer with ping keepalive.
func (h *Handler) writePump(conn *websocket.Conn, sink *hub.Sink, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sink.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("stream_write_failed", "sink_id", sink.ID(), "error", err.Error())
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
