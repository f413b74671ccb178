package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/example/slick-storefront/internal/logger"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	// eventTypes restricts handling to messages whose event_type header is
	// listed. Messages without the header are always handled.
	eventTypes map[string]bool
	logger     *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *slog.Logger, eventTypes ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, log, eventTypes...)
}

func newConsumer(reader messageReader, log *slog.Logger, eventTypes ...string) *Consumer {
	c := &Consumer{reader: reader, logger: logger.Component(log, "Kafka")}
	if len(eventTypes) > 0 {
		c.eventTypes = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			c.eventTypes[t] = true
		}
	}
	return c
}

// Consume reads messages until ctx is cancelled. Handler errors are logged
// and the message is skipped.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			if !c.wants(msg) {
				continue
			}
			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.logger.Error("error handling message", "key", string(msg.Key), "offset", msg.Offset, "error", err)
			}
		}
	}
}

func (c *Consumer) wants(msg kafka.Message) bool {
	if c.eventTypes == nil {
		return true
	}
	for _, h := range msg.Headers {
		if h.Key == EventTypeHeader {
			return c.eventTypes[string(h.Value)]
		}
	}
	return true
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
