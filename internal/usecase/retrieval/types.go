// Package retrieval implements the hybrid retriever: dense and sparse
// candidates fetched under one read view, fused by reciprocal rank fusion,
// optionally reordered by a cross-encoder reranker.
package retrieval

import "market-intel/internal/domain"

// DefaultRRFK is the standard reciprocal-rank-fusion constant.
const DefaultRRFK = 60

// Result is one retrieved chunk with its final retrieval score. The score
// is an RRF fusion score, or a cross-encoder relevance score when the
// reranker ran.
type Result struct {
	Chunk domain.Chunk
	Score float64
}
