package domain

import "context"

// ArticleArchive records admitted articles behind the commit and serves
// recent-article lookups. It is write-behind convenience, never a source
// of truth: failures are logged and the pipeline advances.
type ArticleArchive interface {
	SaveBatch(ctx context.Context, articles []Article) error
	RecentBySubject(ctx context.Context, subject string, limit int) ([]Article, error)
}
