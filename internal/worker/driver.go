// Package worker hosts the two long-lived ingestion goroutines: the
// streaming driver that turns aggregator rounds into an admitted-article
// changefeed, and the coordinator that drains the changefeed into committed
// micro-batches.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"market-intel/internal/domain"
)

// Aggregator is the driver's view of the multi-source fetch round.
type Aggregator interface {
	FetchAll(ctx context.Context, query string) []domain.Article
}

// Driver is the sole producer of the changefeed and of monotonic ingest
// sequence numbers. One goroutine: sleep, fetch, emit, repeat.
type Driver struct {
	aggregator Aggregator
	interval   time.Duration
	logger     *slog.Logger

	seq    atomic.Uint64
	events chan domain.ArticleAdmitted
	admits chan domain.Article

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewDriver(aggregator Aggregator, interval time.Duration, buffer int, logger *slog.Logger) *Driver {
	if buffer <= 0 {
		buffer = 256
	}
	return &Driver{
		aggregator: aggregator,
		interval:   interval,
		logger:     logger,
		events:     make(chan domain.ArticleAdmitted, buffer),
		admits:     make(chan domain.Article, 16),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Events is the changefeed. Closed after Stop, once the final tick has
// drained.
func (d *Driver) Events() <-chan domain.ArticleAdmitted {
	return d.events
}

func (d *Driver) Start() {
	d.logger.Info("driver_started", "interval", d.interval.String())
	go d.run()
}

// Stop cancels the loop cooperatively. Safe to call more than once.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("driver_stopping")
		close(d.stopChan)
	})
	<-d.done
}

// Admit injects an externally supplied article into the changefeed, giving
// it a sequence number like any fetched one. Returns false once the driver
// is stopping.
func (d *Driver) Admit(article domain.Article) bool {
	// Checked first: with run() gone the buffered send below could still
	// succeed and silently strand the article.
	select {
	case <-d.stopChan:
		return false
	default:
	}
	select {
	case d.admits <- article:
		return true
	case <-d.stopChan:
		return false
	}
}

func (d *Driver) run() {
	defer close(d.done)
	defer close(d.events)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// First round immediately; waiting a full interval before any content
	// makes a fresh process look dead.
	d.tickSafe()

	for {
		select {
		case <-d.stopChan:
			return
		case a := <-d.admits:
			d.emit(a)
		case <-ticker.C:
			d.tickSafe()
		}
	}
}

// tickSafe recovers a panicking round so one bad provider payload cannot
// kill the changefeed.
func (d *Driver) tickSafe() {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("driver_tick_panicked", "panic", rec)
		}
	}()
	d.tick()
}

func (d *Driver) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.interval)
	defer cancel()

	articles := d.aggregator.FetchAll(ctx, "")
	for _, a := range articles {
		if !d.emit(a) {
			return
		}
	}
	if len(articles) > 0 {
		d.logger.Info("tick_admitted", "articles", len(articles), "last_seq", d.seq.Load())
	}
}

func (d *Driver) emit(a domain.Article) bool {
	ev := domain.ArticleAdmitted{
		Seq:       d.seq.Add(1),
		Article:   a,
		EmittedAt: time.Now().UTC(),
	}
	select {
	case d.events <- ev:
		return true
	case <-d.stopChan:
		return false
	}
}
