package domain

import "context"

// ChangefeedOutbox mirrors admitted-article events to an external stream
// for consumers outside the process. Best-effort: a publish failure never
// blocks or aborts a commit.
type ChangefeedOutbox interface {
	Publish(ctx context.Context, event ArticleAdmitted) error
	Close() error
}
