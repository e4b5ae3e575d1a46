package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/index"
)

func denseWith(t *testing.T, vectors ...[]float32) *index.DenseIndex {
	t.Helper()
	x := index.NewDenseIndex()
	ids := make([]domain.ChunkID, len(vectors))
	for i := range vectors {
		ids[i] = domain.ChunkID{ArticleID: string(rune('a' + i)), Ordinal: 0}
	}
	require.NoError(t, x.Add(ids, vectors))
	return x
}

func TestDenseIndex_OrdersByAngleNotMagnitude(t *testing.T) {
	// b points the same way as the query but with a tiny magnitude; cosine
	// similarity must still put it first.
	x := denseWith(t,
		[]float32{10, 10}, // a: 45 degrees off
		[]float32{0.01, 0},
		[]float32{0, 5}, // c: orthogonal
	)

	hits := x.Search([]float32{1, 0}, 10)
	require.Len(t, hits, 3)
	assert.Equal(t, "b", hits[0].ID.ArticleID)
	assert.Equal(t, "a", hits[1].ID.ArticleID)
	assert.Equal(t, "c", hits[2].ID.ArticleID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-9)
}

func TestDenseIndex_TieBreaksByInsertionOrder(t *testing.T) {
	x := denseWith(t,
		[]float32{1, 0},
		[]float32{2, 0},
		[]float32{3, 0},
	)

	hits := x.Search([]float32{5, 0}, 10)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID.ArticleID)
	assert.Equal(t, "b", hits[1].ID.ArticleID)
	assert.Equal(t, "c", hits[2].ID.ArticleID)
}

func TestDenseIndex_RejectsDimensionMismatch(t *testing.T) {
	x := index.NewDenseIndex()
	err := x.Add(
		[]domain.ChunkID{{ArticleID: "a"}, {ArticleID: "b"}},
		[][]float32{{1, 0, 0}, {1, 0}},
	)
	require.Error(t, err)

	err = x.Add([]domain.ChunkID{{ArticleID: "c"}}, [][]float32{{}})
	require.Error(t, err)
}

func TestDenseIndex_ZeroQueryAndBoundaries(t *testing.T) {
	x := denseWith(t, []float32{1, 0})

	assert.Empty(t, x.Search([]float32{0, 0}, 10))
	assert.Empty(t, x.Search(nil, 10))
	assert.Empty(t, x.Search([]float32{1, 0}, 0))

	hits := x.Search([]float32{1, 1}, 5)
	assert.Len(t, hits, 1)
}
