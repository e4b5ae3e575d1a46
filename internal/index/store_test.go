package index_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/index"
)

func mkChunk(articleID string, ordinal int, text string) domain.Chunk {
	return domain.Chunk{
		ID:   domain.ChunkID{ArticleID: articleID, Ordinal: ordinal},
		Text: text,
		Ref:  domain.ArticleRef{ArticleID: articleID, Title: "t-" + articleID},
	}
}

func TestStore_CommitMakesBothLegsVisible(t *testing.T) {
	store := index.NewStore()

	chunks := []domain.Chunk{
		mkChunk("a1", 0, "AAPL earnings beat expectations"),
		mkChunk("a2", 0, "TSLA deliveries miss estimates"),
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	seq, err := store.Commit(chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, 2, store.Size())

	dense, sparse, viewSeq := store.Search([]float32{1, 0}, "AAPL earnings", 10)
	assert.Equal(t, uint64(1), viewSeq)
	require.NotEmpty(t, dense)
	require.NotEmpty(t, sparse)
	assert.Equal(t, chunks[0].ID, dense[0].ID)
	assert.Equal(t, chunks[0].ID, sparse[0].ID)

	got, ok := store.Chunk(chunks[1].ID)
	require.True(t, ok)
	assert.Equal(t, chunks[1].Text, got.Text)

	commitSeq, ok := store.CommitSeqOf(chunks[0].ID)
	require.True(t, ok)
	assert.Equal(t, uint64(1), commitSeq)
}

func TestStore_MalformedBatchLeavesBothIndicesUnchanged(t *testing.T) {
	store := index.NewStore()

	_, err := store.Commit([]domain.Chunk{mkChunk("a1", 0, "hello")}, [][]float32{{1, 0}, {0, 1}})
	require.Error(t, err)

	_, err = store.Commit(
		[]domain.Chunk{mkChunk("a1", 0, "hello"), mkChunk("a2", 0, "world")},
		[][]float32{{1, 0}, {0, 1, 0}},
	)
	require.Error(t, err)

	assert.Equal(t, 0, store.Size())
	assert.Equal(t, uint64(0), store.CommitSeq())
	dense, sparse, _ := store.Search([]float32{1, 0}, "hello", 10)
	assert.Empty(t, dense)
	assert.Empty(t, sparse)
}

func TestStore_CommitSequenceIsMonotonic(t *testing.T) {
	store := index.NewStore()

	for i := 1; i <= 5; i++ {
		seq, err := store.Commit(
			[]domain.Chunk{mkChunk(fmt.Sprintf("a%d", i), 0, "token")},
			[][]float32{{1, float32(i)}},
		)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), seq)
	}
	assert.Equal(t, uint64(5), store.CommitSeq())
}

// Batches of two chunks commit while a reader races lookups: whenever the
// second chunk of a batch is visible, the first must be too.
func TestStore_ReadersNeverObservePartialBatches(t *testing.T) {
	store := index.NewStore()
	const batches = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < batches; i++ {
			id := fmt.Sprintf("a%d", i)
			_, err := store.Commit(
				[]domain.Chunk{mkChunk(id, 0, "first"), mkChunk(id, 1, "second")},
				[][]float32{{1, 0}, {0, 1}},
			)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < batches; i++ {
		id := fmt.Sprintf("a%d", i)
		for {
			if _, ok := store.Chunk(domain.ChunkID{ArticleID: id, Ordinal: 1}); ok {
				_, ok0 := store.Chunk(domain.ChunkID{ArticleID: id, Ordinal: 0})
				assert.True(t, ok0, "second chunk visible without the first for %s", id)
				break
			}
		}
	}
	wg.Wait()
	assert.Equal(t, 2*batches, store.Size())
}
