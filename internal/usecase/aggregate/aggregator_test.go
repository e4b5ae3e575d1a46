package aggregate_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/usecase/aggregate"
)

type MockNewsSource struct {
	mock.Mock
}

func (m *MockNewsSource) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNewsSource) Fetch(ctx context.Context, query string) []domain.Article {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Article)
}

func testArticle(t *testing.T, title, url string) domain.Article {
	t.Helper()
	a, ok := domain.NormalizeArticle(domain.ArticleDraft{
		Title:        title,
		CanonicalURL: url,
		Content:      "body of " + title,
	}, "test", time.Now().UTC())
	require.True(t, ok)
	return a
}

func newSeen(t *testing.T) *aggregate.SeenSet {
	t.Helper()
	seen, err := aggregate.NewSeenSet(128)
	require.NoError(t, err)
	return seen
}

func TestFetchAll_UnionDeduplicatesAcrossSources(t *testing.T) {
	shared := testArticle(t, "Apple beats estimates", "https://example.com/apple")
	only2 := testArticle(t, "Tesla misses deliveries", "https://example.com/tsla")

	src1 := new(MockNewsSource)
	src1.On("Fetch", mock.Anything, "").Return([]domain.Article{shared})
	src2 := new(MockNewsSource)
	src2.On("Fetch", mock.Anything, "").Return([]domain.Article{shared, only2})

	agg := aggregate.New([]domain.NewsSource{src1, src2}, newSeen(t),
		aggregate.ModeUnion, 5, slog.Default())

	admitted := agg.FetchAll(context.Background(), "")
	require.Len(t, admitted, 2, "the same fingerprint from two sources is admitted once")

	ids := map[string]bool{admitted[0].ID: true, admitted[1].ID: true}
	assert.True(t, ids[shared.ID])
	assert.True(t, ids[only2.ID])

	src1.AssertExpectations(t)
	src2.AssertExpectations(t)
}

func TestFetchAll_SecondRoundDropsEverythingAlreadyAdmitted(t *testing.T) {
	article := testArticle(t, "Apple beats estimates", "https://example.com/apple")

	src := new(MockNewsSource)
	src.On("Fetch", mock.Anything, "").Return([]domain.Article{article})

	agg := aggregate.New([]domain.NewsSource{src}, newSeen(t),
		aggregate.ModeUnion, 5, slog.Default())

	require.Len(t, agg.FetchAll(context.Background(), ""), 1)
	assert.Empty(t, agg.FetchAll(context.Background(), ""))
}

func TestFetchAll_OrderedFailoverStopsAtFirstNonEmptySource(t *testing.T) {
	article := testArticle(t, "Apple beats estimates", "https://example.com/apple")

	src1 := new(MockNewsSource)
	src1.On("Fetch", mock.Anything, "AAPL").Return(nil)
	src2 := new(MockNewsSource)
	src2.On("Fetch", mock.Anything, "AAPL").Return([]domain.Article{article})
	src3 := new(MockNewsSource)

	agg := aggregate.New([]domain.NewsSource{src1, src2, src3}, newSeen(t),
		aggregate.ModeOrderedFailover, 5, slog.Default())

	admitted := agg.FetchAll(context.Background(), "AAPL")
	require.Len(t, admitted, 1)

	src1.AssertExpectations(t)
	src2.AssertExpectations(t)
	src3.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestFetchAll_EmptySourcesYieldEmptyRound(t *testing.T) {
	agg := aggregate.New(nil, newSeen(t), aggregate.ModeUnion, 5, slog.Default())
	assert.Empty(t, agg.FetchAll(context.Background(), ""))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, aggregate.ModeUnion, aggregate.ParseMode("union"))
	assert.Equal(t, aggregate.ModeOrderedFailover, aggregate.ParseMode("ordered-failover"))
	assert.Equal(t, aggregate.ModeUnion, aggregate.ParseMode("anything-else"))
	assert.Equal(t, aggregate.ModeUnion, aggregate.ParseMode(""))
}

func TestStats(t *testing.T) {
	src := new(MockNewsSource)
	src.On("Name").Return("newsapi")
	src.On("Fetch", mock.Anything, "").Return([]domain.Article{
		testArticle(t, "Apple beats estimates", "https://example.com/apple"),
	})

	agg := aggregate.New([]domain.NewsSource{src}, newSeen(t),
		aggregate.ModeUnion, 5, slog.Default())
	agg.FetchAll(context.Background(), "")

	stats := agg.Stats()
	assert.Equal(t, []string{"newsapi"}, stats.Sources)
	assert.Equal(t, "union", stats.Mode)
	assert.Equal(t, 1, stats.SeenCount)
}
