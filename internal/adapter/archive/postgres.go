// Package archive persists admitted articles behind the commit path. The
// postgres variant is durable storage for operators; the memory variant is
// the zero-dependency fallback. Neither is a source of truth for the
// indices.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"market-intel/internal/domain"
)

// DBTX is the slice of pgxpool.Pool the archive needs; pgxmock satisfies it
// in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresArchive struct {
	db     DBTX
	logger *slog.Logger
}

// NewPostgresArchive creates the pgx-backed archive.
func NewPostgresArchive(db DBTX, logger *slog.Logger) domain.ArticleArchive {
	return &postgresArchive{db: db, logger: logger}
}

// SaveBatch inserts the batch idempotently: the fingerprint is the primary
// key, so replayed articles are no-ops.
func (a *postgresArchive) SaveBatch(ctx context.Context, articles []domain.Article) error {
	query := `
		INSERT INTO articles (id, title, description, content, source_name, canonical_url, published_at, image_url, first_seen_at, subjects)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	for _, art := range articles {
		_, err := a.db.Exec(ctx, query,
			art.ID,
			art.Title,
			art.Description,
			art.Content,
			art.SourceName,
			art.CanonicalURL,
			art.PublishedAt,
			art.ImageURL,
			art.FirstSeenAt,
			subjectsOf(art),
		)
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
	}
	return nil
}

// RecentBySubject returns the newest archived articles tagged with subject.
func (a *postgresArchive) RecentBySubject(ctx context.Context, subject string, limit int) ([]domain.Article, error) {
	query := `
		SELECT id, title, description, content, source_name, canonical_url, published_at, image_url, first_seen_at
		FROM articles
		WHERE $1 = ANY(subjects)
		ORDER BY published_at DESC
		LIMIT $2
	`
	rows, err := a.db.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var art domain.Article
		if err := rows.Scan(
			&art.ID,
			&art.Title,
			&art.Description,
			&art.Content,
			&art.SourceName,
			&art.CanonicalURL,
			&art.PublishedAt,
			&art.ImageURL,
			&art.FirstSeenAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read article rows: %w", err)
	}
	return articles, nil
}

// subjectsOf derives the routing tags stored alongside the article.
func subjectsOf(a domain.Article) []string {
	return domain.ExtractSubjectTags(strings.Join([]string{a.Title, a.Description, a.Content}, " "))
}
