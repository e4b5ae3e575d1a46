package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/index"
	"market-intel/internal/usecase/ingest"
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

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveBatch(ctx context.Context, articles []domain.Article) error {
	args := m.Called(ctx, articles)
	return args.Error(0)
}

func (m *MockArchive) RecentBySubject(ctx context.Context, subject string, limit int) ([]domain.Article, error) {
	args := m.Called(ctx, subject, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Article), args.Error(1)
}

type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) Publish(ctx context.Context, event domain.ArticleAdmitted) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutbox) Close() error {
	args := m.Called()
	return args.Error(0)
}

func admittedEvent(t *testing.T, seq uint64, title, content string) domain.ArticleAdmitted {
	t.Helper()
	article, ok := domain.NormalizeArticle(domain.ArticleDraft{
		Title:        title,
		Content:      content,
		CanonicalURL: "https://example.com/" + title,
	}, "test", time.Now().UTC())
	require.True(t, ok)
	return domain.ArticleAdmitted{Seq: seq, Article: article, EmittedAt: time.Now().UTC()}
}

func encodeAnyTexts(encoder *MockVectorEncoder) *mock.Call {
	return encoder.On("Encode", mock.Anything, mock.AnythingOfType("[]string"))
}

func TestCommitBatch_CommitsChunksAndWritesBehind(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)
	encodeAnyTexts(encoder).Return([][]float32{{1, 0}, {0, 1}}, nil)

	archive := new(MockArchive)
	archive.On("SaveBatch", mock.Anything, mock.AnythingOfType("[]domain.Article")).Return(nil)
	outbox := new(MockOutbox)
	outbox.On("Publish", mock.Anything, mock.AnythingOfType("domain.ArticleAdmitted")).Return(nil)

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, archive, outbox, slog.Default())

	events := []domain.ArticleAdmitted{
		admittedEvent(t, 1, "apple-beats", "Apple AAPL reported strong results."),
		admittedEvent(t, 2, "tesla-misses", "Tesla TSLA missed delivery estimates."),
	}

	batch, err := uc.CommitBatch(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), batch.CommitSeq)
	assert.Len(t, batch.Articles, 2)
	assert.Len(t, batch.Chunks, 2)
	assert.Equal(t, 2, store.Size())

	archive.AssertNumberOfCalls(t, "SaveBatch", 1)
	outbox.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCommitBatch_EncoderFailureAbortsWholeBatch(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)
	encodeAnyTexts(encoder).Return(nil, errors.New("embedder down"))

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, nil, nil, slog.Default())

	_, err := uc.CommitBatch(context.Background(), []domain.ArticleAdmitted{
		admittedEvent(t, 1, "apple-beats", "Apple reported strong results."),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode chunk batch")
	assert.Equal(t, 0, store.Size(), "nothing becomes visible on embed failure")
}

func TestCommitBatch_VectorCountMismatchAbortsWholeBatch(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)
	encodeAnyTexts(encoder).Return([][]float32{{1, 0}, {0, 1}, {1, 1}}, nil)

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, nil, nil, slog.Default())

	_, err := uc.CommitBatch(context.Background(), []domain.ArticleAdmitted{
		admittedEvent(t, 1, "apple-beats", "Apple reported strong results."),
	})
	require.Error(t, err)
	assert.Equal(t, 0, store.Size())
}

func TestCommitBatch_ZeroChunkArticlesDropOutWithoutFailing(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)
	encodeAnyTexts(encoder).Return([][]float32{{1, 0}}, nil)

	outbox := new(MockOutbox)
	outbox.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.ArticleAdmitted) bool {
		return ev.Seq == 2
	})).Return(nil)

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, nil, outbox, slog.Default())

	empty := admittedEvent(t, 1, "empty-body", "")
	full := admittedEvent(t, 2, "tesla-misses", "Tesla missed delivery estimates.")

	batch, err := uc.CommitBatch(context.Background(), []domain.ArticleAdmitted{empty, full})
	require.NoError(t, err)
	assert.Len(t, batch.Articles, 1)
	assert.Equal(t, full.Article.ID, batch.Articles[0].ID)

	// Only the committed article's event reaches the outbox.
	outbox.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCommitBatch_AllArticlesEmptyIsANoOp(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, nil, nil, slog.Default())

	batch, err := uc.CommitBatch(context.Background(), []domain.ArticleAdmitted{
		admittedEvent(t, 1, "empty-body", ""),
	})
	require.NoError(t, err)
	assert.Zero(t, batch.CommitSeq)
	assert.Empty(t, batch.Chunks)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestCommitBatch_EmptyEventSlice(t *testing.T) {
	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), new(MockVectorEncoder), index.NewStore(), nil, nil, slog.Default())

	batch, err := uc.CommitBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, batch.CommitSeq)
}

func TestCommitBatch_WriteBehindFailuresAreNonFatal(t *testing.T) {
	store := index.NewStore()
	encoder := new(MockVectorEncoder)
	encodeAnyTexts(encoder).Return([][]float32{{1, 0}}, nil)

	archive := new(MockArchive)
	archive.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("db unavailable"))
	outbox := new(MockOutbox)
	outbox.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis unavailable"))

	uc := ingest.NewCommitBatchUsecase(domain.NewChunker(0), encoder, store, archive, outbox, slog.Default())

	batch, err := uc.CommitBatch(context.Background(), []domain.ArticleAdmitted{
		admittedEvent(t, 1, "apple-beats", "Apple reported strong results."),
	})
	require.NoError(t, err, "write-behind collaborators cannot fail a committed batch")
	assert.Equal(t, uint64(1), batch.CommitSeq)
	assert.Equal(t, 1, store.Size())
}
