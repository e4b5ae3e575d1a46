// Package index holds the in-process retrieval store: a dense vector index
// and a sparse BM25 index kept in lockstep by a single-writer commit
// discipline. The indices themselves are not safe for concurrent use; the
// Store serializes access.
package index

import (
	"fmt"
	"math"
	"sort"

	"market-intel/internal/domain"
)

// Hit is one scored result from either index.
type Hit struct {
	ID    domain.ChunkID
	Score float64
}

type denseRecord struct {
	id  domain.ChunkID
	vec []float32
	// norm is precomputed at append time; query-time normalization then
	// only needs the query's own norm.
	norm float64
}

// DenseIndex is an append-only brute-force cosine index. Vectors are stored
// raw; normalization happens at query time.
type DenseIndex struct {
	records []denseRecord
	dim     int
}

func NewDenseIndex() *DenseIndex {
	return &DenseIndex{}
}

// Add appends one row per chunk. All vectors must share the dimension the
// index saw first.
func (x *DenseIndex) Add(ids []domain.ChunkID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("dense add: %d ids for %d vectors", len(ids), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return fmt.Errorf("dense add: empty vector for chunk %s", ids[i])
		}
		if x.dim == 0 {
			x.dim = len(vec)
		} else if len(vec) != x.dim {
			return fmt.Errorf("dense add: vector dim %d, index dim %d", len(vec), x.dim)
		}
		x.records = append(x.records, denseRecord{
			id:   ids[i],
			vec:  vec,
			norm: l2norm(vec),
		})
	}
	return nil
}

// Search returns the top-k rows by cosine similarity to query, descending,
// ties broken by insertion order.
func (x *DenseIndex) Search(query []float32, k int) []Hit {
	if k <= 0 || len(x.records) == 0 || len(query) == 0 {
		return nil
	}

	qnorm := l2norm(query)
	if qnorm == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(x.records))
	for _, rec := range x.records {
		if rec.norm == 0 {
			continue
		}
		hits = append(hits, Hit{
			ID:    rec.id,
			Score: dot(query, rec.vec) / (qnorm * rec.norm),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Size returns the number of indexed rows.
func (x *DenseIndex) Size() int {
	return len(x.records)
}

func l2norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
