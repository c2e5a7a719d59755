package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// Handler receives each decoded change event.
type Handler func(ctx context.Context, ev models.TodoEvent) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Run consumes todo change events from Kafka until ctx is done.
// Consumers sharing groupID split the partitions between them.
func Run(ctx context.Context, brokers []string, topic, groupID string, handle Handler) error {
	if len(brokers) == 0 {
		return errors.New("worker: no kafka brokers configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Kafka event consumer started", "topic", topic, "group", groupID)
	return consume(ctx, reader, handle)
}

func consume(ctx context.Context, r messageReader, handle Handler) error {
	var processed int64
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka event consumer stopped", "processed", processed)
				return nil
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, msg.Value, handle); err != nil {
			// Commit anyway to avoid poison pill blocking the partition
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
		} else {
			processed++
		}
		if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

func handleMessage(ctx context.Context, payload []byte, handle Handler) error {
	var ev models.TodoEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	switch ev.Action {
	case models.ActionCreated, models.ActionToggled, models.ActionRenamed, models.ActionDeleted:
	default:
		return fmt.Errorf("unknown event action %q", ev.Action)
	}
	return handle(ctx, ev)
}

// LogHandler writes every event to the context logger.
func LogHandler(ctx context.Context, ev models.TodoEvent) error {
	args := []any{"action", ev.Action, "id", ev.ID, "occurred_at", ev.OccurredAt}
	if ev.Todo != nil {
		args = append(args, "title", ev.Todo.Title, "completed", ev.Todo.Completed, "category", ev.Todo.Category)
	}
	logger.Info(ctx, "Todo event", args...)
	return nil
}
