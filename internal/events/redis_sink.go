package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannel = "marketplace:events"

// RedisSink publishes lifecycle events on a Redis pub/sub channel for the
// external notification service. Publish failures are logged, never
// propagated.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisSink returns sink publishing on the given channel, or the default
// one when empty.
func NewRedisSink(client *redis.Client, channel string, logger *zap.Logger) *RedisSink {
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisSink{client: client, channel: channel, logger: logger}
}

// Publish serializes the event and pushes it to the channel.
func (s *RedisSink) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
