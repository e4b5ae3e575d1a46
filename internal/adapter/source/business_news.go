package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/infra/metrics"
)

const (
	businessNewsName          = "business-news"
	businessNewsMaxResults    = 20
	defaultBusinessCallBudget = 500
	defaultBusinessQuery      = "stock market finance trading"
)

// BusinessNewsSource fetches general business news from a MediaStack-style
// endpoint. The provider's free tier carries a small monthly call budget;
// the adapter counts successful calls against it and goes quiet when the
// budget is spent.
type BusinessNewsSource struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	gate      *Gate
	remaining atomic.Int64
	disabled  atomic.Bool
	logger    *slog.Logger
}

func NewBusinessNewsSource(apiKey, baseURL string, callBudget int, client *http.Client, logger *slog.Logger) *BusinessNewsSource {
	if callBudget <= 0 {
		callBudget = defaultBusinessCallBudget
	}
	s := &BusinessNewsSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		gate:    NewGate(time.Second, 0, 0),
		logger:  logger,
	}
	s.remaining.Store(int64(callBudget))
	return s
}

func (s *BusinessNewsSource) Name() string { return businessNewsName }

func (s *BusinessNewsSource) Enabled() bool {
	return s.apiKey != "" && !s.disabled.Load() && s.remaining.Load() > 0
}

// RemainingBudget reports how many calls are left this month.
func (s *BusinessNewsSource) RemainingBudget() int {
	return int(s.remaining.Load())
}

type businessNewsResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Data []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      string `json:"source"`
		Image       string `json:"image"`
		PublishedAt string `json:"published_at"`
	} `json:"data"`
}

func (s *BusinessNewsSource) Fetch(ctx context.Context, query string) []domain.Article {
	if !s.Enabled() {
		metrics.RecordFetch(businessNewsName, "disabled", 0)
		return nil
	}
	if !s.gate.Allow() {
		metrics.RecordFetch(businessNewsName, "rate_limited", 0)
		return nil
	}

	if query == "" {
		query = defaultBusinessQuery
	}

	params := url.Values{}
	params.Set("access_key", s.apiKey)
	params.Set("keywords", query)
	params.Set("categories", "business")
	params.Set("languages", "en")
	params.Set("limit", "50")

	endpoint := fmt.Sprintf("%s/v1/news?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		metrics.RecordFetch(businessNewsName, "error", 0)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("fetch_failed", "adapter", businessNewsName, "error", err.Error())
		metrics.RecordFetch(businessNewsName, "error", 0)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.disabled.Store(true)
		s.logger.Warn("adapter_disabled_auth", "adapter", businessNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(businessNewsName, "auth_error", 0)
		return nil
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("fetch_bad_status", "adapter", businessNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(businessNewsName, "error", 0)
		return nil
	}

	s.remaining.Add(-1)

	var payload businessNewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("fetch_decode_failed", "adapter", businessNewsName, "error", err.Error())
		metrics.RecordFetch(businessNewsName, "error", 0)
		return nil
	}
	if payload.Error != nil {
		s.logger.Warn("fetch_provider_error", "adapter", businessNewsName,
			"code", payload.Error.Code, "message", payload.Error.Message)
		metrics.RecordFetch(businessNewsName, "error", 0)
		return nil
	}

	now := time.Now()
	articles := make([]domain.Article, 0, len(payload.Data))
	for _, raw := range payload.Data {
		if len(articles) >= businessNewsMaxResults {
			break
		}
		a, ok := domain.NormalizeArticle(domain.ArticleDraft{
			Title:        raw.Title,
			Description:  raw.Description,
			Content:      raw.Description,
			SourceName:   raw.Source,
			CanonicalURL: raw.URL,
			ImageURL:     raw.Image,
			PublishedAt:  parseProviderTime(raw.PublishedAt),
		}, businessNewsName, now)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}

	metrics.RecordFetch(businessNewsName, "ok", len(articles))
	return articles
}

var _ domain.NewsSource = (*BusinessNewsSource)(nil)
