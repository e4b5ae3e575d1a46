package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const sseHeartbeatInterval = 10 * time.Second

// MarketStream serves the global frame feed (market_update and
// metrics_update) over SSE, with a heartbeat comment keeping idle
// connections alive. (GET /v1/market/stream)
func (h *Handler) MarketStream(logger *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Content-Type", "text/event-stream")
		c.Response().Header().Set("Cache-Control", "no-cache")
		c.Response().Header().Set("Connection", "keep-alive")
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		c.Response().WriteHeader(http.StatusOK)

		flusher, canFlush := c.Response().Writer.(http.Flusher)
		if !canFlush {
			logger.Error("sse_flush_unsupported")
			return c.String(http.StatusInternalServerError, "streaming not supported")
		}

		// Empty subject = global frames only.
		sink := h.hub.Subscribe("")
		defer h.hub.Unsubscribe(sink)
		logger.Info("market_stream_opened", "sink_id", sink.ID())

		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case frame, ok := <-sink.Frames():
				if !ok {
					return nil
				}
				if _, err := c.Response().Write(append(append([]byte("data: "), frame...), '\n', '\n')); err != nil {
					logger.Debug("market_stream_closed", "sink_id", sink.ID(), "error", err.Error())
					return nil
				}
				flusher.Flush()

			case <-heartbeat.C:
				if _, err := c.Response().Write([]byte(": heartbeat\n\n")); err != nil {
					return nil
				}
				flusher.Flush()

			case <-c.Request().Context().Done():
				logger.Debug("market_stream_closed_by_client", "sink_id", sink.ID())
				return nil
			}
		}
	}
}
