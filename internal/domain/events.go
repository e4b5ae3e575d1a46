package domain

import "time"

// ArticleAdmitted is the changefeed event emitted once per unique article.
// Seq is assigned by the streaming driver and is strictly monotonic for
// the lifetime of the process; it orders commits and scopes at-most-once
// delivery accounting.
type ArticleAdmitted struct {
	Seq       uint64    `json:"seq"`
	Article   Article   `json:"article"`
	EmittedAt time.Time `json:"emitted_at"`
}

// CommittedBatch describes one dual-index commit: the articles admitted,
// their chunks, and the commit sequence assigned by the store.
type CommittedBatch struct {
	CommitSeq uint64
	Articles  []Article
	Chunks    []Chunk
}
