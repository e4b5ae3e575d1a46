// Package ingest implements the dual-index commit path: chunk a micro-batch
// of admitted articles, embed the chunks in one batch, and append them to
// the dense and sparse indices under a single write-exclusive commit.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/index"
	"market-intel/internal/infra/logger"
	"market-intel/internal/infra/metrics"
)

// CommitBatchUsecase turns admitted-article events into one committed batch
// visible to queries.
type CommitBatchUsecase interface {
	// CommitBatch processes events as one unit. An embedder failure aborts
	// the whole batch for both indices; the articles stay in the seen-set
	// and are not retried. A batch whose articles all chunk to nothing
	// returns an empty committed batch and no error.
	CommitBatch(ctx context.Context, events []domain.ArticleAdmitted) (domain.CommittedBatch, error)
}

type commitBatchUsecase struct {
	chunker domain.Chunker
	encoder domain.VectorEncoder
	store   *index.Store
	archive domain.ArticleArchive   // nil when not configured
	outbox  domain.ChangefeedOutbox // nil when not configured
	logger  *slog.Logger
}

func NewCommitBatchUsecase(
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	store *index.Store,
	archive domain.ArticleArchive,
	outbox domain.ChangefeedOutbox,
	logger *slog.Logger,
) CommitBatchUsecase {
	return &commitBatchUsecase{
		chunker: chunker,
		encoder: encoder,
		store:   store,
		archive: archive,
		outbox:  outbox,
		logger:  logger,
	}
}

func (u *commitBatchUsecase) CommitBatch(ctx context.Context, events []domain.ArticleAdmitted) (domain.CommittedBatch, error) {
	if len(events) == 0 {
		return domain.CommittedBatch{}, nil
	}
	log := logger.WithContext(ctx, u.logger)

	// 1. Chunk every article. Empty bodies yield zero chunks and drop out
	// of the batch without failing it.
	var chunks []domain.Chunk
	var articles []domain.Article
	for _, ev := range events {
		articleChunks := u.chunker.Chunk(ev.Article)
		if len(articleChunks) == 0 {
			log.Debug("article_yielded_no_chunks", "article_id", ev.Article.ID)
			continue
		}
		chunks = append(chunks, articleChunks...)
		articles = append(articles, ev.Article)
	}
	if len(chunks) == 0 {
		return domain.CommittedBatch{}, nil
	}

	// 2. Embed the whole batch in one encoder call. The commit below never
	// suspends; all waiting happens here.
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := u.encoder.Encode(ctx, texts)
	if err != nil {
		metrics.RecordCommit("embed_failed", 0)
		return domain.CommittedBatch{}, fmt.Errorf("failed to encode chunk batch: %w", err)
	}
	if len(vectors) != len(chunks) {
		metrics.RecordCommit("embed_failed", 0)
		return domain.CommittedBatch{}, fmt.Errorf("encoder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	// 3. One atomic commit across both indices.
	commitSeq, err := u.store.Commit(chunks, vectors)
	if err != nil {
		metrics.RecordCommit("failed", len(articles))
		return domain.CommittedBatch{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	metrics.RecordCommit("ok", len(articles))
	metrics.IndexedChunks.Set(float64(u.store.Size()))

	batch := domain.CommittedBatch{
		CommitSeq: commitSeq,
		Articles:  articles,
		Chunks:    chunks,
	}

	// 4. Write-behind collaborators. Best-effort by contract: neither the
	// archive nor the outbox can fail a committed batch.
	u.writeBehind(ctx, events, batch)

	log.Info("batch_committed",
		"commit_seq", commitSeq,
		"articles", len(articles),
		"chunks", len(chunks))

	return batch, nil
}

func (u *commitBatchUsecase) writeBehind(ctx context.Context, events []domain.ArticleAdmitted, batch domain.CommittedBatch) {
	log := logger.WithContext(ctx, u.logger)
	if u.archive != nil {
		if err := u.archive.SaveBatch(ctx, batch.Articles); err != nil {
			metrics.ArchiveWriteTotal.WithLabelValues("error").Inc()
			log.Warn("archive_write_failed", "error", err.Error())
		} else {
			metrics.ArchiveWriteTotal.WithLabelValues("ok").Inc()
		}
	}

	if u.outbox != nil {
		committed := make(map[string]struct{}, len(batch.Articles))
		for _, a := range batch.Articles {
			committed[a.ID] = struct{}{}
		}
		for _, ev := range events {
			if _, ok := committed[ev.Article.ID]; !ok {
				continue
			}
			if err := u.outbox.Publish(ctx, ev); err != nil {
				metrics.OutboxPublishTotal.WithLabelValues("error").Inc()
				log.Warn("outbox_publish_failed", "seq", ev.Seq, "error", err.Error())
			} else {
				metrics.OutboxPublishTotal.WithLabelValues("ok").Inc()
			}
		}
	}
}

// RecordLatency observes the per-article path from changefeed receipt to
// commit.
func RecordLatency(receivedAt time.Time) {
	metrics.IngestLatency.Observe(time.Since(receivedAt).Seconds())
}
