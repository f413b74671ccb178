package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/slick-storefront/internal/logger"
)

// EventTypeHeader carries the event name so consumers can skip events they
// do not handle without decoding the payload.
const EventTypeHeader = "event_type"

type namedEvent interface {
	Name() string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, logger: logger.Component(log, "Kafka")}
}

// Publish writes event as JSON keyed by key, so every event of one order
// lands on the same partition.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if e, ok := event.(namedEvent); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: EventTypeHeader, Value: []byte(e.Name())})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event", "key", key, "error", err)
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.logger.Debug("event published", "key", key)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
