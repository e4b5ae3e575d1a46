package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"market-intel/internal/domain"
	"market-intel/internal/infra/metrics"
)

const (
	publicFeedName         = "public-feed"
	publicFeedPerFeedCap   = 20
	publicFeedHostInterval = 30 * time.Second
)

// PublicFeedSource pulls RSS/Atom feeds. Feeds need no credential, so this
// adapter is always enabled; it paces per host instead of per provider key.
// Descriptions arrive as HTML and are stripped to plain text before
// normalization.
type PublicFeedSource struct {
	feedURLs  []string
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	logger    *slog.Logger

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewPublicFeedSource(feedURLs []string, client *http.Client, logger *slog.Logger) *PublicFeedSource {
	parser := gofeed.NewParser()
	parser.Client = client
	return &PublicFeedSource{
		feedURLs:  feedURLs,
		parser:    parser,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (s *PublicFeedSource) Name() string { return publicFeedName }

func (s *PublicFeedSource) Enabled() bool { return len(s.feedURLs) > 0 }

func (s *PublicFeedSource) Fetch(ctx context.Context, _ string) []domain.Article {
	if !s.Enabled() {
		metrics.RecordFetch(publicFeedName, "disabled", 0)
		return nil
	}

	now := time.Now()
	var articles []domain.Article
	for _, feedURL := range s.feedURLs {
		if ctx.Err() != nil {
			break
		}
		if !s.allowHost(feedURL) {
			metrics.RecordFetch(publicFeedName, "rate_limited", 0)
			continue
		}

		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.logger.Warn("fetch_failed", "adapter", publicFeedName, "feed", feedURL, "error", err.Error())
			metrics.RecordFetch(publicFeedName, "error", 0)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= publicFeedPerFeedCap {
				break
			}
			var publishedAt time.Time
			if item.PublishedParsed != nil {
				publishedAt = item.PublishedParsed.UTC()
			} else {
				publishedAt = parseProviderTime(item.Published)
			}

			var imageURL string
			if item.Image != nil {
				imageURL = item.Image.URL
			}

			a, ok := domain.NormalizeArticle(domain.ArticleDraft{
				Title:        item.Title,
				Description:  s.sanitizer.Sanitize(item.Description),
				Content:      s.sanitizer.Sanitize(item.Content),
				SourceName:   feed.Title,
				CanonicalURL: item.Link,
				ImageURL:     imageURL,
				PublishedAt:  publishedAt,
			}, publicFeedName, now)
			if !ok {
				continue
			}
			articles = append(articles, a)
			count++
		}
	}

	metrics.RecordFetch(publicFeedName, "ok", len(articles))
	return articles
}

// allowHost applies the per-host minimum interval without blocking. A feed
// whose host was polled too recently is skipped for this tick.
func (s *PublicFeedSource) allowHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	return s.limiterFor(parsed.Host).Allow()
}

func (s *PublicFeedSource) limiterFor(host string) *rate.Limiter {
	s.mu.RLock()
	limiter, ok := s.limiters[host]
	s.mu.RUnlock()
	if ok {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check pattern
	if limiter, ok := s.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(publicFeedHostInterval), 1)
	s.limiters[host] = limiter
	return limiter
}

var _ domain.NewsSource = (*PublicFeedSource)(nil)
