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

	"golang.org/x/time/rate"

	"market-intel/internal/domain"
	"market-intel/internal/infra/metrics"
)

const (
	companyNewsName       = "company-news"
	companyNewsQuota      = 60
	companyNewsWindow     = time.Minute
	companyNewsPerSymbol  = 10
	companyNewsMaxResults = 30
	companyNewsLookback   = 7 * 24 * time.Hour
	// General queries rotate only the head of the default symbol set to
	// keep per-tick call volume down.
	companyNewsGeneralSymbols = 3
)

// CompanyNewsSource fetches per-symbol company news from a Finnhub-style
// endpoint. The provider requires a symbol, so non-symbol queries fall back
// to a default rotation. Calls within one fetch are paced a second apart.
type CompanyNewsSource struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	gate     *Gate
	pacer    *rate.Limiter
	symbols  []string
	disabled atomic.Bool
	logger   *slog.Logger
}

func NewCompanyNewsSource(apiKey, baseURL string, symbols []string, client *http.Client, logger *slog.Logger) *CompanyNewsSource {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return &CompanyNewsSource{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		gate:    NewGate(0, companyNewsQuota, companyNewsWindow),
		pacer:   rate.NewLimiter(rate.Every(time.Second), 1),
		symbols: symbols,
		logger:  logger,
	}
}

func (s *CompanyNewsSource) Name() string { return companyNewsName }

func (s *CompanyNewsSource) Enabled() bool {
	return s.apiKey != "" && !s.disabled.Load()
}

type companyNewsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Image    string `json:"image"`
	Datetime int64  `json:"datetime"`
}

func (s *CompanyNewsSource) Fetch(ctx context.Context, query string) []domain.Article {
	if !s.Enabled() {
		metrics.RecordFetch(companyNewsName, "disabled", 0)
		return nil
	}

	symbols := s.symbolsFor(query)

	now := time.Now()
	var articles []domain.Article
	for _, symbol := range symbols {
		if len(articles) >= companyNewsMaxResults {
			break
		}
		if !s.gate.Allow() {
			metrics.RecordFetch(companyNewsName, "rate_limited", 0)
			break
		}
		if err := s.pacer.Wait(ctx); err != nil {
			break
		}

		items, ok := s.fetchSymbol(ctx, symbol)
		if !ok {
			continue
		}
		for i, raw := range items {
			if i >= companyNewsPerSymbol || len(articles) >= companyNewsMaxResults {
				break
			}
			var publishedAt time.Time
			if raw.Datetime > 0 {
				publishedAt = time.Unix(raw.Datetime, 0).UTC()
			}
			a, converted := domain.NormalizeArticle(domain.ArticleDraft{
				Title:        raw.Headline,
				Description:  raw.Summary,
				Content:      raw.Summary,
				SourceName:   raw.Source,
				CanonicalURL: raw.URL,
				ImageURL:     raw.Image,
				PublishedAt:  publishedAt,
			}, companyNewsName, now)
			if !converted {
				continue
			}
			articles = append(articles, a)
		}
	}

	metrics.RecordFetch(companyNewsName, "ok", len(articles))
	return articles
}

// symbolsFor resolves the symbol list for one fetch: the query itself when
// it is a symbol, otherwise the head of the default rotation.
func (s *CompanyNewsSource) symbolsFor(query string) []string {
	if symbol := symbolOf(query); symbol != "" {
		return []string{symbol}
	}
	n := companyNewsGeneralSymbols
	if n > len(s.symbols) {
		n = len(s.symbols)
	}
	return s.symbols[:n]
}

func (s *CompanyNewsSource) fetchSymbol(ctx context.Context, symbol string) ([]companyNewsItem, bool) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", time.Now().UTC().Add(-companyNewsLookback).Format("2006-01-02"))
	params.Set("to", time.Now().UTC().Format("2006-01-02"))
	params.Set("token", s.apiKey)

	endpoint := fmt.Sprintf("%s/api/v1/company-news?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("fetch_failed", "adapter", companyNewsName, "symbol", symbol, "error", err.Error())
		metrics.RecordFetch(companyNewsName, "error", 0)
		return nil, false
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s.disabled.Store(true)
		s.logger.Warn("adapter_disabled_auth", "adapter", companyNewsName, "status", resp.StatusCode)
		metrics.RecordFetch(companyNewsName, "auth_error", 0)
		return nil, false
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("fetch_bad_status", "adapter", companyNewsName, "symbol", symbol, "status", resp.StatusCode)
		metrics.RecordFetch(companyNewsName, "error", 0)
		return nil, false
	}

	var items []companyNewsItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		s.logger.Warn("fetch_decode_failed", "adapter", companyNewsName, "symbol", symbol, "error", err.Error())
		metrics.RecordFetch(companyNewsName, "error", 0)
		return nil, false
	}
	return items, true
}

var _ domain.NewsSource = (*CompanyNewsSource)(nil)
