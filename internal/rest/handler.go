// Package rest is the HTTP façade: the synchronous query API, external
// ingest, operational endpoints, and the two push transports (WebSocket and
// SSE) draining hub sinks.
package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"market-intel/internal/domain"
	"market-intel/internal/hub"
	"market-intel/internal/usecase/aggregate"
	"market-intel/internal/usecase/market"
	"market-intel/internal/usecase/verdict"
)

const defaultArticleLimit = 20

// Admitter injects an externally supplied article into the changefeed.
type Admitter interface {
	Admit(article domain.Article) bool
}

// IndexInfo exposes the committed index counters for health and stats.
type IndexInfo interface {
	Size() int
	CommitSeq() uint64
}

type Handler struct {
	assembler  *verdict.Assembler
	admitter   Admitter
	seen       *aggregate.SeenSet
	aggregator *aggregate.Aggregator
	archive    domain.ArticleArchive
	registry   *market.Registry
	hub        *hub.Hub
	index      IndexInfo
	startedAt  time.Time
}

func NewHandler(
	assembler *verdict.Assembler,
	admitter Admitter,
	seen *aggregate.SeenSet,
	aggregator *aggregate.Aggregator,
	archive domain.ArticleArchive,
	registry *market.Registry,
	h *hub.Hub,
	index IndexInfo,
) *Handler {
	return &Handler{
		assembler:  assembler,
		admitter:   admitter,
		seen:       seen,
		aggregator: aggregator,
		archive:    archive,
		registry:   registry,
		hub:        h,
		index:      index,
		startedAt:  time.Now(),
	}
}

// Health reports service liveness plus the coarse pipeline counters.
// (GET /v1/health)
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"documents_indexed": h.index.Size(),
		"uptime_seconds":    int(time.Since(h.startedAt).Seconds()),
		"active_subjects":   h.registry.Len(),
	})
}

type recommendRequest struct {
	Subject string `json:"subject"`
}

// Recommend assembles a verdict synchronously for the requested subject.
// (POST /v1/recommend)
func (h *Handler) Recommend(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	subject := strings.TrimSpace(req.Subject)
	if strings.EqualFold(subject, domain.MarketSubject) {
		subject = domain.MarketSubject
	} else {
		subject = strings.ToUpper(subject)
		if !domain.IsSubjectSymbol(subject) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid subject"})
		}
	}

	v := h.assembler.Assemble(c.Request().Context(), subject)
	return c.JSON(http.StatusOK, v)
}

type ingestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Ingest admits one external article into the changefeed.
// (POST /v1/ingest)
func (h *Handler) Ingest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	draft := domain.ArticleDraft{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		SourceName:   req.Source,
		CanonicalURL: req.URL,
	}
	if req.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, req.PublishedAt); err == nil {
			draft.PublishedAt = t
		}
	}

	article, ok := domain.NormalizeArticle(draft, "external", time.Now().UTC())
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title or url required"})
	}

	// Same seen-set as the aggregator, so external ingest cannot replay a
	// fingerprint into the changefeed.
	if !h.seen.Observe(article.ID) {
		return c.JSON(http.StatusOK, map[string]string{"id": article.ID, "status": "duplicate"})
	}
	if !h.admitter.Admit(article) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "shutting down"})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"id": article.ID, "status": "queued"})
}

// Articles lists recent admitted articles mentioning the subject.
// (GET /v1/articles/:subject)
func (h *Handler) Articles(c echo.Context) error {
	subject := strings.ToUpper(strings.TrimSpace(c.Param("subject")))
	if !domain.IsSubjectSymbol(subject) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid subject"})
	}

	limit := defaultArticleLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	articles, err := h.archive.RecentBySubject(c.Request().Context(), subject, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load articles"})
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"subject":  subject,
		"articles": articles,
		"count":    len(articles),
	})
}

// Market returns the subject-state snapshot.
// (GET /v1/market)
func (h *Handler) Market(c echo.Context) error {
	states := h.registry.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"subjects": states,
		"count":    len(states),
	})
}

// Stats exposes the pipeline counters.
// (GET /v1/stats)
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"aggregator":  h.aggregator.Stats(),
		"indexed":     h.index.Size(),
		"commit_seq":  h.index.CommitSeq(),
		"subscribers": h.hub.Len(),
		"subjects":    h.registry.Len(),
	})
}

// Healthz is the liveness probe. (GET /healthz)
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is the readiness probe: ready once the pipeline is wired, with an
// optional dependency ping installed by the composition root.
// (GET /readyz)
func (h *Handler) Readyz(readyCheck func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if readyCheck != nil {
			if err := readyCheck(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
}
