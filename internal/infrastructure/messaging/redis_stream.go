// Package messaging delivers outbox messages to the Redis event stream.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"procurement/internal/infrastructure/storage/postgres"
	"procurement/pkg/logger"
)

const (
	// DefaultStream receives every procurement event.
	DefaultStream = "procurement:events"

	defaultDedupPrefix = "procurement:outbox:sent:"
	defaultDedupTTL    = 24 * time.Hour
	defaultMaxLen      = 100_000
)

// StreamClient is the subset of *redis.Client the publisher needs.
type StreamClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStreamPublisher appends outbox messages to a Redis stream. A SETNX marker
// per message id keeps a redelivered message from being appended twice.
type RedisStreamPublisher struct {
	client      StreamClient
	stream      string
	dedupPrefix string
	dedupTTL    time.Duration
	maxLen      int64
}

var _ postgres.OutboxHandler = (*RedisStreamPublisher)(nil)

// NewRedisStreamPublisher creates a publisher; an empty stream means DefaultStream.
func NewRedisStreamPublisher(client StreamClient, stream string) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{
		client:      client,
		stream:      stream,
		dedupPrefix: defaultDedupPrefix,
		dedupTTL:    defaultDedupTTL,
		maxLen:      defaultMaxLen,
	}
}

// WithDedupTTL sets how long a delivered message id is remembered.
func (p *RedisStreamPublisher) WithDedupTTL(ttl time.Duration) *RedisStreamPublisher {
	p.dedupTTL = ttl
	return p
}

// Handle implements postgres.OutboxHandler.
func (p *RedisStreamPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	key := p.dedupPrefix + msg.ID.String()

	fresh, err := p.client.SetNX(ctx, key, msg.EventType, p.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("mark outbox message: %w", err)
	}
	if !fresh {
		logger.Debug(ctx, "outbox message already delivered", "message_id", msg.ID)
		return nil
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"message_id":     msg.ID.String(),
			"tenant_id":      msg.TenantID.String(),
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
			"event_type":     msg.EventType,
			"user_id":        msg.UserID,
			"payload":        string(msg.Payload),
			"created_at":     msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		// Forget the marker so the retry is not mistaken for a duplicate.
		if delErr := p.client.Del(ctx, key).Err(); delErr != nil {
			logger.Warn(ctx, "failed to clear outbox marker", "message_id", msg.ID, "error", delErr)
		}
		return fmt.Errorf("append to stream %s: %w", p.stream, err)
	}

	logger.Debug(ctx, "outbox message delivered",
		"message_id", msg.ID, "event_type", msg.EventType, "stream_id", entryID)
	return nil
}
