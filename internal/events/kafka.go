package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

const topicTimeout = 5 * time.Second

// topicCreator is the part of *kafka.Client used to create the topic.
type topicCreator interface {
	CreateTopics(ctx context.Context, req *kafka.CreateTopicsRequest) (*kafka.CreateTopicsResponse, error)
}

// ensureTopic creates topic unless it already exists.
func ensureTopic(ctx context.Context, admin topicCreator, topic string, partitions int) error {
	resp, err := admin.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     max(partitions, 1),
			ReplicationFactor: 1,
		}},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if err := resp.Errors[topic]; err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by todo id, so all events for one todo
// land on one partition in commit order.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher ensures the topic and returns an async publisher. A
// failed topic creation is only logged: the broker may auto-create it.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, partitions int) *KafkaPublisher {
	admin := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: topicTimeout}
	if err := ensureTopic(ctx, admin, topic, partitions); err != nil {
		logger.Warn(ctx, "Kafka topic not ensured", "error", err)
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 0,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn(context.Background(), "Kafka event delivery failed", "error", err, "count", len(msgs))
			}
		},
	}
	logger.Info(ctx, "Kafka event publisher initialized", "topic", topic, "brokers", brokers)
	return &KafkaPublisher{w: w}
}

// Publish encodes ev as JSON and hands it to the writer.
func (p *KafkaPublisher) Publish(ctx context.Context, ev models.TodoEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.ID, 10)),
		Value: payload,
	})
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
