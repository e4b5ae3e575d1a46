package rest

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires every endpoint onto the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler, logger *slog.Logger, readyCheck func(ctx context.Context) error) {
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.POST("/recommend", h.Recommend)
	v1.POST("/ingest", h.Ingest)
	v1.GET("/articles/:subject", h.Articles)
	v1.GET("/market", h.Market)
	v1.GET("/stats", h.Stats)
	v1.GET("/stream/:subject", h.Stream(logger))
	v1.GET("/market/stream", h.MarketStream(logger))

	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz(readyCheck))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
