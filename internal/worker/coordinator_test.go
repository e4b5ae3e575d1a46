package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"market-intel/internal/domain"
	"market-intel/internal/worker"
)

type MockCommitter struct {
	mock.Mock
}

func (m *MockCommitter) CommitBatch(ctx context.Context, events []domain.ArticleAdmitted) (domain.CommittedBatch, error) {
	args := m.Called(ctx, events)
	return args.Get(0).(domain.CommittedBatch), args.Error(1)
}

type recordingRouter struct {
	mu      sync.Mutex
	batches []domain.CommittedBatch
}

func (r *recordingRouter) RouteBatch(ctx context.Context, batch domain.CommittedBatch) <-chan struct{} {
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return done
}

func (r *recordingRouter) routed() []domain.CommittedBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.CommittedBatch(nil), r.batches...)
}

type stubStates []domain.SubjectState

func (s stubStates) Snapshot() []domain.SubjectState { return s }

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []any
}

func (b *recordingBroadcaster) BroadcastGlobal(payload any) {
	b.mu.Lock()
	b.frames = append(b.frames, payload)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) all() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]any(nil), b.frames...)
}

type stubDocs int

func (s stubDocs) Size() int { return int(s) }

func committedFrom(events []domain.ArticleAdmitted, seq uint64) domain.CommittedBatch {
	batch := domain.CommittedBatch{CommitSeq: seq}
	for _, ev := range events {
		batch.Articles = append(batch.Articles, ev.Article)
		batch.Chunks = append(batch.Chunks, domain.Chunk{
			ID:   domain.ChunkID{ArticleID: ev.Article.ID, Ordinal: 0},
			Text: ev.Article.Content,
		})
	}
	return batch
}

func eventFor(seq uint64, id string) domain.ArticleAdmitted {
	return domain.ArticleAdmitted{
		Seq:       seq,
		Article:   namedArticle(id),
		EmittedAt: time.Now().UTC(),
	}
}

func waitDone(t *testing.T, c *worker.Coordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never drained")
	}
}

func TestCoordinator_BatchesByCount(t *testing.T) {
	events := make(chan domain.ArticleAdmitted, 8)
	committer := new(MockCommitter)
	committer.On("CommitBatch", mock.Anything, mock.MatchedBy(func(evs []domain.ArticleAdmitted) bool {
		return len(evs) == 2
	})).Return(domain.CommittedBatch{CommitSeq: 1}, nil).Once()

	router := &recordingRouter{}
	c := worker.NewCoordinator(events, committer, router, stubStates(nil), nil, stubDocs(0),
		2, time.Hour, slog.Default())
	c.Start()

	events <- eventFor(1, "a1")
	events <- eventFor(2, "a2")
	close(events)
	waitDone(t, c)

	committer.AssertExpectations(t)
}

func TestCoordinator_BatchesByDeadline(t *testing.T) {
	events := make(chan domain.ArticleAdmitted, 8)
	committed := make(chan int, 1)
	committer := new(MockCommitter)
	committer.On("CommitBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			committed <- len(args.Get(1).([]domain.ArticleAdmitted))
		}).
		Return(domain.CommittedBatch{}, nil)

	c := worker.NewCoordinator(events, committer, &recordingRouter{}, stubStates(nil), nil, stubDocs(0),
		64, 20*time.Millisecond, slog.Default())
	c.Start()
	defer func() { close(events); waitDone(t, c) }()

	events <- eventFor(1, "a1")

	select {
	case n := <-committed:
		assert.Equal(t, 1, n, "deadline flushes a partial batch")
	case <-time.After(2 * time.Second):
		t.Fatal("batch never committed")
	}
}

func TestCoordinator_RoutesAndBroadcastsPerBatch(t *testing.T) {
	events := make(chan domain.ArticleAdmitted, 8)
	in := []domain.ArticleAdmitted{eventFor(1, "a1"), eventFor(2, "a2")}
	batch := committedFrom(in, 7)

	committer := new(MockCommitter)
	committer.On("CommitBatch", mock.Anything, mock.Anything).Return(batch, nil)

	router := &recordingRouter{}
	broadcaster := &recordingBroadcaster{}
	states := stubStates([]domain.SubjectState{{Subject: "AAPL", Score: 0.5, LastUpdated: time.Now().UTC()}})

	c := worker.NewCoordinator(events, committer, router, states, broadcaster, stubDocs(42),
		2, time.Hour, slog.Default())
	c.Start()

	events <- in[0]
	events <- in[1]
	close(events)
	waitDone(t, c)

	routed := router.routed()
	require.Len(t, routed, 1)
	assert.Equal(t, uint64(7), routed[0].CommitSeq)

	frames := broadcaster.all()
	require.Len(t, frames, 2, "one metrics_update plus one market_update per batch")

	metricsFrame, ok := frames[0].(domain.MetricsUpdateFrame)
	require.True(t, ok)
	assert.Equal(t, domain.FrameTypeMetricsUpdate, metricsFrame.Type)
	assert.Equal(t, 42, metricsFrame.Data.TotalDocs)

	marketFrame, ok := frames[1].(domain.MarketUpdateFrame)
	require.True(t, ok)
	assert.Equal(t, domain.FrameTypeMarketUpdate, marketFrame.Type)
	require.Len(t, marketFrame.Data, 1)
	assert.Equal(t, "AAPL", marketFrame.Data[0].Subject)
	assert.Equal(t, 0.5, marketFrame.Data[0].Score)
}

func TestCoordinator_CommitFailureSkipsRoutingAndKeepsDraining(t *testing.T) {
	events := make(chan domain.ArticleAdmitted, 8)
	committer := new(MockCommitter)
	committer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(domain.CommittedBatch{}, errors.New("embedder down")).Once()
	committer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(committedFrom([]domain.ArticleAdmitted{eventFor(2, "a2")}, 1), nil).Once()

	router := &recordingRouter{}
	broadcaster := &recordingBroadcaster{}
	c := worker.NewCoordinator(events, committer, router, stubStates(nil), broadcaster, stubDocs(1),
		1, time.Hour, slog.Default())
	c.Start()

	events <- eventFor(1, "a1")
	events <- eventFor(2, "a2")
	close(events)
	waitDone(t, c)

	require.Len(t, router.routed(), 1, "the failed batch is never routed")
	committer.AssertExpectations(t)
}

func TestCoordinator_EmptyCommitIsSilent(t *testing.T) {
	events := make(chan domain.ArticleAdmitted, 8)
	committer := new(MockCommitter)
	committer.On("CommitBatch", mock.Anything, mock.Anything).Return(domain.CommittedBatch{}, nil)

	router := &recordingRouter{}
	broadcaster := &recordingBroadcaster{}
	c := worker.NewCoordinator(events, committer, router, stubStates(nil), broadcaster, stubDocs(0),
		1, time.Hour, slog.Default())
	c.Start()

	events <- eventFor(1, "empty")
	close(events)
	waitDone(t, c)

	assert.Empty(t, router.routed(), "a batch with no chunks routes nothing")
	assert.Empty(t, broadcaster.all())
}
