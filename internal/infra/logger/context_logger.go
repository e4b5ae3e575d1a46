package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

// Business context keys for pipeline observability. Values attached to a
// context flow through every log line emitted under it.
const (
	SubjectKey   ContextKey = "intel.subject"
	ArticleIDKey ContextKey = "intel.article.id"
	StageKey     ContextKey = "intel.stage"
	TickSeqKey   ContextKey = "intel.tick.seq"
)

// WithContext returns base with any pipeline context fields attached, so a
// usecase logging under a routed context carries subject, stage and tick
// sequence without threading them through every call.
func WithContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any

	if subject := ctx.Value(SubjectKey); subject != nil {
		fields = append(fields, string(SubjectKey), subject)
	}
	if articleID := ctx.Value(ArticleIDKey); articleID != nil {
		fields = append(fields, string(ArticleIDKey), articleID)
	}
	if stage := ctx.Value(StageKey); stage != nil {
		fields = append(fields, string(StageKey), stage)
	}
	if seq := ctx.Value(TickSeqKey); seq != nil {
		fields = append(fields, string(TickSeqKey), seq)
	}

	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// WithSubject adds the routing subject to context for observability.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// WithArticleID adds the article id to context for observability.
func WithArticleID(ctx context.Context, articleID string) context.Context {
	return context.WithValue(ctx, ArticleIDKey, articleID)
}

// WithStage adds the pipeline stage to context for observability.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithTickSeq adds the driver tick sequence to context for observability.
func WithTickSeq(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, TickSeqKey, seq)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
