package worker

import (
	"context"
	"log/slog"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/infra/logger"
	"market-intel/internal/usecase/ingest"
)

const (
	commitTimeout = 60 * time.Second
	routeWait     = 30 * time.Second
)

// BatchRouter schedules verdict recomputations for a committed batch and
// signals completion on the returned channel.
type BatchRouter interface {
	RouteBatch(ctx context.Context, batch domain.CommittedBatch) <-chan struct{}
}

// StateSnapshotter provides the subject-state entries broadcast after a
// batch's recomputations settle.
type StateSnapshotter interface {
	Snapshot() []domain.SubjectState
}

// GlobalBroadcaster pushes a frame to every registered sink.
type GlobalBroadcaster interface {
	BroadcastGlobal(payload any)
}

// DocCounter reports how many chunks are visible to queries.
type DocCounter interface {
	Size() int
}

// Coordinator drains the changefeed into micro-batches and owns the commit
// ordering: one batch at a time, up to maxArticles articles or maxWait,
// whichever fills first.
type Coordinator struct {
	events      <-chan domain.ArticleAdmitted
	committer   ingest.CommitBatchUsecase
	router      BatchRouter
	states      StateSnapshotter
	broadcaster GlobalBroadcaster // nil when push is disabled
	docs        DocCounter
	maxArticles int
	maxWait     time.Duration
	logger      *slog.Logger

	done chan struct{}
}

func NewCoordinator(
	events <-chan domain.ArticleAdmitted,
	committer ingest.CommitBatchUsecase,
	router BatchRouter,
	states StateSnapshotter,
	broadcaster GlobalBroadcaster,
	docs DocCounter,
	maxArticles int,
	maxWait time.Duration,
	logger *slog.Logger,
) *Coordinator {
	if maxArticles <= 0 {
		maxArticles = 64
	}
	if maxWait <= 0 {
		maxWait = 50 * time.Millisecond
	}
	return &Coordinator{
		events:      events,
		committer:   committer,
		router:      router,
		states:      states,
		broadcaster: broadcaster,
		docs:        docs,
		maxArticles: maxArticles,
		maxWait:     maxWait,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

func (c *Coordinator) Start() {
	c.logger.Info("coordinator_started",
		"batch_max_articles", c.maxArticles,
		"batch_max_wait", c.maxWait.String())
	go c.run()
}

// Done closes once the changefeed has been fully drained after the driver
// stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run() {
	defer close(c.done)

	for {
		ev, ok := <-c.events
		if !ok {
			c.logger.Info("coordinator_stopped")
			return
		}
		batch, receipts, open := c.collect(ev)
		c.process(batch, receipts)
		if !open {
			c.logger.Info("coordinator_stopped")
			return
		}
	}
}

// collect gathers one micro-batch starting from first. Returns the batch,
// the per-event receipt times, and whether the changefeed is still open.
func (c *Coordinator) collect(first domain.ArticleAdmitted) ([]domain.ArticleAdmitted, []time.Time, bool) {
	batch := []domain.ArticleAdmitted{first}
	receipts := []time.Time{time.Now()}

	timer := time.NewTimer(c.maxWait)
	defer timer.Stop()

	for len(batch) < c.maxArticles {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return batch, receipts, false
			}
			batch = append(batch, ev)
			receipts = append(receipts, time.Now())
		case <-timer.C:
			return batch, receipts, true
		}
	}
	return batch, receipts, true
}

func (c *Coordinator) process(batch []domain.ArticleAdmitted, receipts []time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	ctx = logger.WithStage(ctx, "commit")
	ctx = logger.WithTickSeq(ctx, batch[0].Seq)

	committed, err := c.committer.CommitBatch(ctx, batch)
	if err != nil {
		c.logger.Error("batch_commit_failed",
			"articles", len(batch),
			"first_seq", batch[0].Seq,
			"error", err.Error())
		return
	}

	var latencySum time.Duration
	for _, receivedAt := range receipts {
		ingest.RecordLatency(receivedAt)
		latencySum += time.Since(receivedAt)
	}

	if len(committed.Chunks) == 0 {
		return
	}

	if c.broadcaster != nil {
		avgMS := float64(latencySum.Milliseconds()) / float64(len(receipts))
		c.broadcaster.BroadcastGlobal(domain.NewMetricsUpdateFrame(domain.MetricsData{
			IndexingLatencyMS: avgMS,
			TotalDocs:         c.docs.Size(),
		}))
	}

	routed := c.router.RouteBatch(ctx, committed)
	select {
	case <-routed:
	case <-time.After(routeWait):
		c.logger.Warn("route_wait_timed_out", "commit_seq", committed.CommitSeq)
	}

	if c.broadcaster != nil {
		states := c.states.Snapshot()
		entries := make([]domain.MarketUpdateEntry, len(states))
		for i, s := range states {
			entries[i] = domain.MarketUpdateEntry{
				Subject: s.Subject,
				Score:   s.Score,
				Updated: s.LastUpdated,
			}
		}
		c.broadcaster.BroadcastGlobal(domain.NewMarketUpdateFrame(entries))
	}
}
