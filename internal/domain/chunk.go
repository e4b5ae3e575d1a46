package domain

import (
	"fmt"
	"time"
)

// ChunkID identifies a chunk as (article, ordinal). The string form is
// what both indices and retrieval results carry.
type ChunkID struct {
	ArticleID string
	Ordinal   int
}

func (id ChunkID) String() string {
	return fmt.Sprintf("%s:%d", id.ArticleID, id.Ordinal)
}

// ArticleRef is the denormalized provenance attached to every chunk so
// retrieval results can cite sources without a second lookup.
type ArticleRef struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	SourceName  string    `json:"source_name"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Chunk is the unit of indexing and retrieval. Derived from exactly one
// article, never mutated after creation.
type Chunk struct {
	ID            ChunkID
	Text          string
	SubjectTags   []string
	CharLength    int
	TokenEstimate int
	Ref           ArticleRef
}

// RefOf builds the provenance record for chunks of a.
func RefOf(a Article) ArticleRef {
	return ArticleRef{
		ArticleID:   a.ID,
		Title:       a.Title,
		SourceName:  a.SourceName,
		URL:         a.CanonicalURL,
		PublishedAt: a.PublishedAt,
	}
}
