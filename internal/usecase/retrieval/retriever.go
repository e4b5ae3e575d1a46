package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"market-intel/internal/domain"
	"market-intel/internal/index"
)

// Retriever answers top-k queries against the committed store. Safe for
// concurrent use with ingestion: both index legs are searched under one
// read view, so results always reference a commit prefix.
type Retriever struct {
	store    *index.Store
	encoder  domain.VectorEncoder
	reranker domain.Reranker // nil when not configured
	rrfK     float64
	logger   *slog.Logger

	rerankWarnOnce sync.Once
}

func NewRetriever(store *index.Store, encoder domain.VectorEncoder, reranker domain.Reranker, rrfK float64, logger *slog.Logger) *Retriever {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}
	return &Retriever{
		store:    store,
		encoder:  encoder,
		reranker: reranker,
		rrfK:     rrfK,
		logger:   logger,
	}
}

// Retrieve returns the top-k chunks for query. Both indices contribute 2k
// candidates each before fusion; the reranker, when configured, reorders
// the fused top 2k. An embedder failure degrades to sparse-only retrieval
// rather than failing the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []Result {
	if k <= 0 || query == "" {
		return nil
	}
	candidates := 2 * k

	var dense, sparse []index.Hit
	queryVec, err := r.encodeQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query_embedding_failed_sparse_only", "error", err.Error())
		sparse, _ = r.store.SearchSparse(query, candidates)
	} else {
		dense, sparse, _ = r.store.Search(queryVec, query, candidates)
	}

	fused := fuseRRF([][]index.Hit{dense, sparse}, r.rrfK)
	if len(fused) == 0 {
		return nil
	}
	if len(fused) > candidates {
		fused = fused[:candidates]
	}

	results := r.resolve(fused)
	results = r.rerank(ctx, query, results)

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (r *Retriever) encodeQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := r.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for one query", len(vecs))
	}
	return vecs[0], nil
}

// resolve maps fused ids back to committed chunks. A chunk evicted between
// the search and the lookup (not possible today; the store is append-only)
// would simply drop out of the results.
func (r *Retriever) resolve(fused []fusedHit) []Result {
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		chunk, ok := r.store.Chunk(f.id)
		if !ok {
			continue
		}
		results = append(results, Result{Chunk: chunk, Score: f.score})
	}
	return results
}
