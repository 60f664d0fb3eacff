package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel shared by every API instance.
const DefaultChannel = "hospital:events"

// RedisPublisher publishes events on a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Relay subscribes to the Redis channel and forwards every event to local
// (typically the WebSocket hub) until ctx is cancelled.
func Relay(ctx context.Context, client *redis.Client, channel string, local Publisher, logger zerolog.Logger) error {
	if channel == "" {
		channel = DefaultChannel
	}
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	logger.Info().Str("channel", channel).Msg("relaying events from redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			forward(ctx, msg.Payload, local, logger)
		}
	}
}

func forward(ctx context.Context, payload string, local Publisher, logger zerolog.Logger) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn().Err(err).Msg("dropping malformed event")
		return
	}
	if err := local.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("local delivery failed")
	}
}
