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
	breakingNewsName       = "breaking-news"
	breakingNewsWindow     = 24 * time.Hour
	breakingNewsQuota      = 100
	breakingNewsMaxResults = 30
	// The provider's free tier lags real time, so the search window reaches
	// back a week to return anything at all.
	breakingNewsLookback = 7 * 24 * time.Hour

	defaultGeneralQuery = "stock market earnings trading"
)

// BreakingNewsSource fetches broad-coverage breaking news from a
// NewsAPI-style everything endpoint. An auth rejection flips the adapter
// into a sticky disabled state until restart.
type BreakingNewsSource struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	gate     *Gate
	disabled atomic.Bool
	logger   *slog.Logger
}

func NewBreakingNewsSource(apiKey, baseURL string, client *http.Client, logger *slog.Logger) *BreakingNewsSource {
	return &BreakingNewsSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		gate:    NewGate(time.Second, breakingNewsQuota, breakingNewsWindow),
		logger:  logger,
	}
}

func (s *BreakingNewsSource) Name() string { return breakingNewsName }

// Enabled reports whether the adapter has a credential and has not been
// disabled by an auth rejection.
func (s *BreakingNewsSource) Enabled() bool {
	return s.apiKey != "" && !s.disabled.Load()
}

type breakingNewsResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (s *BreakingNewsSource) Fetch(ctx context.Context, query string) []domain.Article {
	if !s.Enabled() {
		metrics.RecordFetch(breakingNewsName, "disabled", 0)
		return nil
	}
	if !s.gate.Allow() {
		metrics.RecordFetch(breakingNewsName, "rate_limited", 0)
		return nil
	}

	if query == "" {
		query = defaultGeneralQuery
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "50")
	params.Set("language", "en")
	params.Set("from", time.Now().UTC().Add(-breakingNewsLookback).Format(time.RFC3339))
	params.Set("apiKey", s.apiKey)

	endpoint := fmt.Sprintf("%s/v2/everything?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		metrics.RecordFetch(breakingNewsName, "error", 0)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("fetch_failed", "adapter", breakingNewsName, "error", err.Error())
		metrics.RecordFetch(breakingNewsName, "error", 0)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.disabled.Store(true)
		s.logger.Warn("adapter_disabled_auth", "adapter", breakingNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(breakingNewsName, "auth_error", 0)
		return nil
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("fetch_bad_status", "adapter", breakingNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(breakingNewsName, "error", 0)
		return nil
	}

	var payload breakingNewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("fetch_decode_failed", "adapter", breakingNewsName, "error", err.Error())
		metrics.RecordFetch(breakingNewsName, "error", 0)
		return nil
	}

	now := time.Now()
	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, raw := range payload.Articles {
		if len(articles) >= breakingNewsMaxResults {
			break
		}
		a, ok := domain.NormalizeArticle(domain.ArticleDraft{
			Title:        raw.Title,
			Description:  raw.Description,
			Content:      raw.Content,
			SourceName:   raw.Source.Name,
			CanonicalURL: raw.URL,
			ImageURL:     raw.URLToImage,
			PublishedAt:  parseProviderTime(raw.PublishedAt),
		}, breakingNewsName, now)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}

	metrics.RecordFetch(breakingNewsName, "ok", len(articles))
	return articles
}

var _ domain.NewsSource = (*BreakingNewsSource)(nil)
