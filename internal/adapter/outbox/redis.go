// Package outbox mirrors the admitted-article changefeed onto a Redis
// stream for consumers outside the process.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"market-intel/internal/domain"
)

// RedisOutbox appends admitted-article events to one Redis stream, capped
// approximately at maxLen entries.
type RedisOutbox struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedisOutbox connects to redisURL and verifies the connection.
func NewRedisOutbox(ctx context.Context, redisURL, stream string, maxLen int64, logger *slog.Logger) (*RedisOutbox, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisOutbox{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}, nil
}

// NewRedisOutboxWithClient wraps an existing client; tests hand in a
// miniredis-backed one.
func NewRedisOutboxWithClient(client *redis.Client, stream string, maxLen int64, logger *slog.Logger) *RedisOutbox {
	return &RedisOutbox{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

func (o *RedisOutbox) Publish(ctx context.Context, event domain.ArticleAdmitted) error {
	payload, err := json.Marshal(event.Article)
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	err = o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: map[string]any{
			"seq":        strconv.FormatUint(event.Seq, 10),
			"article_id": event.Article.ID,
			"emitted_at": event.EmittedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			"article":    string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream: %w", err)
	}

	o.logger.Debug("changefeed_event_published",
		slog.String("stream", o.stream),
		slog.Uint64("seq", event.Seq))
	return nil
}

func (o *RedisOutbox) Close() error {
	return o.client.Close()
}

var _ domain.ChangefeedOutbox = (*RedisOutbox)(nil)
