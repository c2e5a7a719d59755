// Package events publishes change notifications after a todo mutation has
// been committed. Publishing is best-effort: storage is the source of truth
// and a lost notification only delays a client refresh.
package events

import (
	"context"
	"fmt"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/models"
)

// Publisher delivers committed change events.
type Publisher interface {
	Publish(ctx context.Context, ev models.TodoEvent) error
	Close() error
}

// New returns the publisher selected by cfg.EventsBackend.
func New(ctx context.Context, cfg *config.Config) (Publisher, error) {
	switch cfg.EventsBackend {
	case "", config.EventsNone:
		return Nop{}, nil
	case config.EventsKafka:
		return NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPartitions), nil
	case config.EventsRedis:
		return NewRedisPublisher(ctx, cfg.RedisURL, cfg.RedisChannel)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}

// NewEvent stamps an event for todo. Pass a nil todo for deletions.
func NewEvent(action string, id int64, todo *models.Todo) models.TodoEvent {
	return models.TodoEvent{
		Action:     action,
		ID:         id,
		Todo:       todo,
		OccurredAt: time.Now().UTC(),
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.TodoEvent) error { return nil }
func (Nop) Close() error { return nil }
