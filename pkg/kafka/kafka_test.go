package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"classbook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("lesson-1").
		WithValue(map[string]int{"quantity": 2}).
		WithEventType("booking.admitted").
		WithSource("classbook").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "lesson-1", msg.Key)
	assert.JSONEq(t, `{"quantity":2}`, string(msg.Value))
	assert.Equal(t, "booking.admitted", msg.GetEventType())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())

	for j := 0; j < 12; j++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: Connection Refused")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("something odd")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(NewPermanentError("bad", nil)))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("later", nil)))
	assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))

	assert.True(t, ShouldRetry(NewTransientError("x", nil), 0, 3))
	assert.False(t, ShouldRetry(NewTransientError("x", nil), 3, 3))
	assert.False(t, ShouldRetry(NewPermanentError("x", nil), 0, 3))
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, nil, "classbook.bookings", logger.Discard())

	var seenTopic string
	p.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		seenTopic = msg.Topic
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("lesson-1").WithValue("payload").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, "lesson-1", string(writer.messages[0].Key))
	assert.Equal(t, "classbook.bookings", seenTopic)
}

func TestProducer_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", logger.Discard())

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("broker down")
	dlq := &fakeWriter{}
	p := newProducer(&fakeWriter{err: writeErr}, dlq, "classbook.lessons", logger.Discard())

	msg, err := NewMessage().WithKey("lesson-1").WithValue("payload").Build()
	require.NoError(t, err)

	err = p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "classbook.lessons", header(dlq.messages[0], HeaderOriginalTopic))
	assert.Equal(t, "broker down", header(dlq.messages[0], "dlq-error"))
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		messages: []kafka.Message{{Topic: "payments", Key: []byte("tx-1"), Value: []byte(`{}`)}},
		cancel:   cancel,
	}
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("mongo unavailable", nil)
		}
		return nil
	}

	dlq := &fakeWriter{}
	c := newConsumer(reader, dlq, "payments", "group", handler, logger.Discard())
	c.retryBackoff = 0

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts)
	assert.Len(t, reader.committed, 1)
	assert.Empty(t, dlq.messages)
}

func TestConsumer_PermanentErrorIsDeadLettered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		messages: []kafka.Message{{Topic: "payments", Key: []byte("tx-1"), Value: []byte(`oops`)}},
		cancel:   cancel,
	}
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		var v map[string]any
		return msg.DecodeValue(&v)
	}

	dlq := &fakeWriter{}
	c := newConsumer(reader, dlq, "payments", "group", handler, logger.Discard())
	c.retryBackoff = 0

	_ = c.Start(ctx)
	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "group", header(dlq.messages[0], "dlq-consumer-group"))
	assert.Len(t, reader.committed, 1)
}
