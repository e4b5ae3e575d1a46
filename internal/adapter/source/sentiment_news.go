package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/infra/metrics"
)

const (
	sentimentNewsName       = "sentiment-tagged-news"
	sentimentNewsQuota      = 500
	sentimentNewsWindow     = 24 * time.Hour
	sentimentNewsMaxResults = 20
)

// SentimentNewsSource fetches sentiment-tagged news from an
// AlphaVantage-style NEWS_SENTIMENT endpoint. The provider signals rate
// limiting inside a 200 response body, so the adapter inspects the payload
// as well as the status code.
type SentimentNewsSource struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	gate     *Gate
	symbols  []string
	disabled atomic.Bool
	logger   *slog.Logger
}

func NewSentimentNewsSource(apiKey, baseURL string, symbols []string, client *http.Client, logger *slog.Logger) *SentimentNewsSource {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return &SentimentNewsSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		gate:    NewGate(0, sentimentNewsQuota, sentimentNewsWindow),
		symbols: symbols,
		logger:  logger,
	}
}

func (s *SentimentNewsSource) Name() string { return sentimentNewsName }

func (s *SentimentNewsSource) Enabled() bool {
	return s.apiKey != "" && !s.disabled.Load()
}

type sentimentNewsResponse struct {
	// Note and Information carry the provider's soft rate-limit messages.
	Note        string `json:"Note"`
	Information string `json:"Information"`
	Feed        []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
		Summary       string `json:"summary"`
		BannerImage   string `json:"banner_image"`
		Source        string `json:"source"`
	} `json:"feed"`
}

func (s *SentimentNewsSource) Fetch(ctx context.Context, query string) []domain.Article {
	if !s.Enabled() {
		metrics.RecordFetch(sentimentNewsName, "disabled", 0)
		return nil
	}
	if !s.gate.Allow() {
		metrics.RecordFetch(sentimentNewsName, "rate_limited", 0)
		return nil
	}

	tickers := s.tickersFor(query)

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("tickers", tickers)
	params.Set("limit", "50")
	params.Set("apikey", s.apiKey)

	endpoint := fmt.Sprintf("%s/query?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		metrics.RecordFetch(sentimentNewsName, "error", 0)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("fetch_failed", "adapter", sentimentNewsName, "error", err.Error())
		metrics.RecordFetch(sentimentNewsName, "error", 0)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.disabled.Store(true)
		s.logger.Warn("adapter_disabled_auth", "adapter", sentimentNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(sentimentNewsName, "auth_error", 0)
		return nil
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("fetch_bad_status", "adapter", sentimentNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(sentimentNewsName, "error", 0)
		return nil
	}

	var payload sentimentNewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("fetch_decode_failed", "adapter", sentimentNewsName, "error", err.Error())
		metrics.RecordFetch(sentimentNewsName, "error", 0)
		return nil
	}
	if payload.Note != "" || payload.Information != "" {
		s.logger.Warn("fetch_soft_rate_limited", "adapter", sentimentNewsName)
		metrics.RecordFetch(sentimentNewsName, "rate_limited", 0)
		return nil
	}

	now := time.Now()
	articles := make([]domain.Article, 0, len(payload.Feed))
	for _, raw := range payload.Feed {
		if len(articles) >= sentimentNewsMaxResults {
			break
		}
		a, ok := domain.NormalizeArticle(domain.ArticleDraft{
			Title:        raw.Title,
			Description:  raw.Summary,
			Content:      raw.Summary,
			SourceName:   raw.Source,
			CanonicalURL: raw.URL,
			ImageURL:     raw.BannerImage,
			PublishedAt:  parseProviderTime(raw.TimePublished),
		}, sentimentNewsName, now)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}

	metrics.RecordFetch(sentimentNewsName, "ok", len(articles))
	return articles
}

func (s *SentimentNewsSource) tickersFor(query string) string {
	if symbol := symbolOf(query); symbol != "" {
		return symbol
	}
	n := companyNewsGeneralSymbols
	if n > len(s.symbols) {
		n = len(s.symbols)
	}
	return strings.Join(s.symbols[:n], ",")
}

var _ domain.NewsSource = (*SentimentNewsSource)(nil)
