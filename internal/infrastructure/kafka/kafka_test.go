package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/logger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

func newTestProducer(err error) (*Producer, *fakeWriter) {
	w := &fakeWriter{err: err}
	return &Producer{writer: w, logger: logger.Discard()}, w
}

// ============================================
// Producer Tests
// ============================================

func TestProducer_Publish(t *testing.T) {
	p, w := newTestProducer(nil)
	event := order.OrderPlaced{
		EventID:   "evt-1",
		EventType: order.EventOrderPlaced,
		Order:     order.Order{ID: "order-1", OwnerID: "user-1"},
	}

	require.NoError(t, p.Publish(context.Background(), "order-1", event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("OrderPlaced")}}, msg.Headers)

	var decoded order.OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order-1", decoded.Order.ID)
}

func TestProducer_PublishPlainValueHasNoHeader(t *testing.T) {
	p, w := newTestProducer(nil)

	require.NoError(t, p.Publish(context.Background(), "k", map[string]string{"a": "b"}))

	require.Len(t, w.msgs, 1)
	assert.Empty(t, w.msgs[0].Headers)
}

func TestProducer_PublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p, _ := newTestProducer(boom)

	err := p.Publish(context.Background(), "order-1", order.OrderPlaced{})
	assert.ErrorIs(t, err, boom)
}

func TestProducer_UnencodableEvent(t *testing.T) {
	p, w := newTestProducer(nil)

	assert.Error(t, p.Publish(context.Background(), "k", make(chan int)))
	assert.Empty(t, w.msgs)
}

// ============================================
// Consumer Tests
// ============================================

func TestConsumer_FiltersByEventType(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Key: []byte("a"), Value: []byte("1"), Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("OrderPlaced")}}},
		{Key: []byte("b"), Value: []byte("2"), Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("OrderShipped")}}},
		{Key: []byte("c"), Value: []byte("3")},
	}}
	c := newConsumer(reader, logger.Discard(), order.EventOrderPlaced)

	var mu sync.Mutex
	var keys []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(ctx context.Context, key, value []byte) error {
			mu.Lock()
			defer mu.Unlock()
			keys = append(keys, string(key))
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestConsumer_HandlerErrorDoesNotStop(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Key: []byte("a")}, {Key: []byte("b")}}}
	c := newConsumer(reader, logger.Discard())

	var mu sync.Mutex
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Consume(ctx, func(ctx context.Context, key, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("bad message")
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}
