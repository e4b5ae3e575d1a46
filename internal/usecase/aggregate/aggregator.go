// Package aggregate implements the multi-source news aggregator: a parallel
// fan-out over every enabled provider adapter, followed by fingerprint
// deduplication against a persistent seen-set.
package aggregate

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"market-intel/internal/domain"
	"market-intel/internal/infra/metrics"
)

// Mode selects how the aggregator consults its sources.
type Mode string

const (
	// ModeUnion fans out to every source in parallel and unions the
	// results. This is the default.
	ModeUnion Mode = "union"
	// ModeOrderedFailover walks sources in registration order and returns
	// the first non-empty result.
	ModeOrderedFailover Mode = "ordered-failover"
)

// ParseMode maps a config string to a Mode, defaulting to union.
func ParseMode(s string) Mode {
	if Mode(s) == ModeOrderedFailover {
		return ModeOrderedFailover
	}
	return ModeUnion
}

// Stats is a point-in-time view of aggregator state for the stats endpoint.
type Stats struct {
	Sources   []string `json:"sources"`
	Mode      string   `json:"mode"`
	SeenCount int      `json:"seen_count"`
}

// Aggregator unions articles from all sources and drops every fingerprint
// it has admitted before. Duplicates die here; nothing downstream ever sees
// two articles with the same fingerprint.
type Aggregator struct {
	sources     []domain.NewsSource
	seen        *SeenSet
	mode        Mode
	parallelism int
	logger      *slog.Logger
}

// New builds an aggregator over sources. parallelism caps the fan-out
// worker count; values above the source count are harmless.
func New(sources []domain.NewsSource, seen *SeenSet, mode Mode, parallelism int, logger *slog.Logger) *Aggregator {
	if parallelism <= 0 {
		parallelism = 5
	}
	return &Aggregator{
		sources:     sources,
		seen:        seen,
		mode:        mode,
		parallelism: parallelism,
		logger:      logger,
	}
}

// FetchAll runs one aggregation round and returns the new, deduplicated
// articles. An empty result means every source came back empty (or only
// with duplicates); the caller skips the tick.
func (a *Aggregator) FetchAll(ctx context.Context, query string) []domain.Article {
	var fetched []domain.Article
	switch a.mode {
	case ModeOrderedFailover:
		fetched = a.fetchOrdered(ctx, query)
	default:
		fetched = a.fetchUnion(ctx, query)
	}

	admitted := a.dedupe(fetched)

	a.logger.Info("aggregator_round_completed",
		"mode", string(a.mode),
		"fetched", len(fetched),
		"admitted", len(admitted),
		"dropped", len(fetched)-len(admitted))

	return admitted
}

// fetchUnion fans out one fetch task per source on a bounded pool and
// awaits all of them. A slow source is bounded by its own HTTP timeout, so
// the round completes within the max adapter timeout.
func (a *Aggregator) fetchUnion(ctx context.Context, query string) []domain.Article {
	results := make([][]domain.Article, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i, src := range a.sources {
		g.Go(func() error {
			// Fetch never returns an error; adapters swallow transport
			// failures and log them.
			results[i] = src.Fetch(gctx, query)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Article
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// fetchOrdered walks sources in registration order and returns the first
// non-empty result. Explicit configuration variant; union is the default.
func (a *Aggregator) fetchOrdered(ctx context.Context, query string) []domain.Article {
	for _, src := range a.sources {
		if articles := src.Fetch(ctx, query); len(articles) > 0 {
			return articles
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// dedupe drops every article whose fingerprint was admitted before,
// including duplicates inside the same round.
func (a *Aggregator) dedupe(articles []domain.Article) []domain.Article {
	if len(articles) == 0 {
		return nil
	}
	admitted := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if !a.seen.Observe(article.ID) {
			metrics.DedupDropped.Inc()
			continue
		}
		admitted = append(admitted, article)
	}
	return admitted
}

// Stats snapshots the source names and seen-set size.
func (a *Aggregator) Stats() Stats {
	names := make([]string, len(a.sources))
	for i, src := range a.sources {
		names[i] = src.Name()
	}
	return Stats{Sources: names, Mode: string(a.mode), SeenCount: a.seen.Len()}
}
