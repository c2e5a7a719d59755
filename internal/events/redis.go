package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// RedisPublisher broadcasts events on a pub/sub channel. Subscribers that are
// not connected miss them, which is fine for refresh hints.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher parses url and checks the server with a ping.
func NewRedisPublisher(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, "Redis event publisher initialized", "channel", channel)
	return NewRedisPublisherFromClient(client, channel), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends ev as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, ev models.TodoEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, b).Err()
}

// Close releases the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
