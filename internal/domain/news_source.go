package domain

import "context"

// NewsSource is the capability record every provider adapter implements.
//
// Fetch never returns an error: transport problems, rate limiting, and
// disabled credentials all surface as an empty list after the adapter has
// logged the cause. query may be a subject symbol; adapters that require
// one treat anything else as a general query and rotate a default symbol
// set. Fetch honors ctx cancellation and its own hard timeout.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, query string) []Article
}
