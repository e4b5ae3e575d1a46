package retrieval_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/index"
	"market-intel/internal/usecase/retrieval"
)

type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Dim() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockVectorEncoder) Version() string {
	args := m.Called()
	return args.String(0)
}

type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	args := m.Called()
	return args.String(0)
}

func chunkOf(articleID, text string) domain.Chunk {
	return domain.Chunk{
		ID:   domain.ChunkID{ArticleID: articleID, Ordinal: 0},
		Text: text,
		Ref:  domain.ArticleRef{ArticleID: articleID},
	}
}

// seededStore commits three chunks whose dense and sparse rankings disagree:
// c2 is the dense runner-up but has no sparse signal, while c3 ranks in both.
func seededStore(t *testing.T) *index.Store {
	t.Helper()
	store := index.NewStore()
	_, err := store.Commit(
		[]domain.Chunk{
			chunkOf("c1", "apple earnings beat expectations"),
			chunkOf("c2", "tesla deliveries"),
			chunkOf("c3", "apple apple apple"),
		},
		[][]float32{{1, 0}, {0.9, 0.1}, {0, 1}},
	)
	require.NoError(t, err)
	return store
}

func TestRetrieve_FusesDenseAndSparseRankings(t *testing.T) {
	store := seededStore(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, []string{"apple earnings"}).Return([][]float32{{1, 0}}, nil)

	retriever := retrieval.NewRetriever(store, encoder, nil, retrieval.DefaultRRFK, slog.Default())

	results := retriever.Retrieve(context.Background(), "apple earnings", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID.ArticleID, "top of both legs wins")
	assert.Equal(t, "c3", results[1].Chunk.ID.ArticleID, "two mid ranks beat one good dense rank")
	assert.Greater(t, results[0].Score, results[1].Score)

	encoder.AssertExpectations(t)
}

func TestRetrieve_EncoderFailureDegradesToSparseOnly(t *testing.T) {
	store := seededStore(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, errors.New("embedder down"))

	retriever := retrieval.NewRetriever(store, encoder, nil, retrieval.DefaultRRFK, slog.Default())

	results := retriever.Retrieve(context.Background(), "apple earnings", 5)
	require.Len(t, results, 2, "c2 has no sparse signal and drops out entirely")
	assert.Equal(t, "c1", results[0].Chunk.ID.ArticleID)
	assert.Equal(t, "c3", results[1].Chunk.ID.ArticleID)
}

func TestRetrieve_RerankerReordersResults(t *testing.T) {
	store := seededStore(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

	reranker := new(MockReranker)
	reranker.On("Rerank", mock.Anything, "apple earnings", mock.Anything).Return([]domain.RerankResult{
		{ID: "c3:0", Score: 0.95},
		{ID: "c1:0", Score: 0.40},
	}, nil)

	retriever := retrieval.NewRetriever(store, encoder, reranker, retrieval.DefaultRRFK, slog.Default())

	results := retriever.Retrieve(context.Background(), "apple earnings", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "c3", results[0].Chunk.ID.ArticleID)
	assert.Equal(t, 0.95, results[0].Score)
	assert.Equal(t, "c1", results[1].Chunk.ID.ArticleID)

	reranker.AssertExpectations(t)
}

func TestRetrieve_RerankerErrorKeepsFusedOrder(t *testing.T) {
	store := seededStore(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

	reranker := new(MockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("model timeout"))
	reranker.On("ModelName").Return("test-reranker")

	retriever := retrieval.NewRetriever(store, encoder, reranker, retrieval.DefaultRRFK, slog.Default())

	results := retriever.Retrieve(context.Background(), "apple earnings", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID.ArticleID)
	assert.Equal(t, "c3", results[1].Chunk.ID.ArticleID)
}

func TestRetrieve_Boundaries(t *testing.T) {
	store := seededStore(t)
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

	retriever := retrieval.NewRetriever(store, encoder, nil, 0, slog.Default())

	assert.Nil(t, retriever.Retrieve(context.Background(), "apple", 0))
	assert.Nil(t, retriever.Retrieve(context.Background(), "", 5))

	empty := retrieval.NewRetriever(index.NewStore(), encoder, nil, retrieval.DefaultRRFK, slog.Default())
	assert.Nil(t, empty.Retrieve(context.Background(), "apple", 5))
}
