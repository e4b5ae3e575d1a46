package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"market-intel/internal/domain"
)

// maxRerankCandidates caps cross-encoder input to keep inference latency
// bounded.
const maxRerankCandidates = 30

// rerank reorders results by cross-encoder relevance. Skips gracefully when
// no reranker is configured; on a reranker error the fused order is kept
// and the degradation is logged once per retriever.
func (r *Retriever) rerank(ctx context.Context, query string, results []Result) []Result {
	if r.reranker == nil || len(results) == 0 {
		return results
	}

	limit := len(results)
	if limit > maxRerankCandidates {
		limit = maxRerankCandidates
	}

	candidates := make([]domain.RerankCandidate, limit)
	for i := 0; i < limit; i++ {
		candidates[i] = domain.RerankCandidate{
			ID:      results[i].Chunk.ID.String(),
			Content: results[i].Chunk.Text,
			Score:   results[i].Score,
		}
	}

	reranked, err := r.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		r.rerankWarnOnce.Do(func() {
			r.logger.Warn("reranking_failed_using_fused_scores",
				slog.String("model", r.reranker.ModelName()),
				slog.String("error", err.Error()))
		})
		return results
	}

	scores := make(map[string]float64, len(reranked))
	for _, rr := range reranked {
		scores[rr.ID] = rr.Score
	}

	for i := range results[:limit] {
		if score, ok := scores[results[i].Chunk.ID.String()]; ok {
			results[i].Score = score
		}
	}
	sort.SliceStable(results[:limit], func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
