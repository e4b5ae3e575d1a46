package domain

import "context"

// RerankCandidate represents a chunk candidate for cross-encoder reranking.
type RerankCandidate struct {
	// ID is the unique identifier for the chunk (used to map back results).
	ID string
	// Content is the text content to be scored against the query.
	Content string
	// Score is the fused retrieval score (for debugging/logging).
	Score float64
}

// RerankResult represents a reranked chunk with cross-encoder relevance score.
type RerankResult struct {
	// ID matches the candidate ID for result mapping.
	ID string
	// Score is the cross-encoder relevance score.
	Score float64
}

// Reranker defines the interface for cross-encoder reranking. The reranker
// is optional: when it errors or is absent, retrieval falls back to the
// fused order.
type Reranker interface {
	// Rerank scores candidates against the query using a cross-encoder
	// model. Returns results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
