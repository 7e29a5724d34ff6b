package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	err     error
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("KA01AB1234").
		WithValue(map[string]string{"slot": "A1"}).
		WithEventType("booking.allocated").
		Build()
	require.NoError(t, err)
	return msg
}

func TestPublish_WritesHeadersAndKey(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "bookings", "")

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	require.Len(t, w.written, 1)

	km := w.written[0]
	assert.Equal(t, "KA01AB1234", string(km.Key))
	assert.JSONEq(t, `{"slot":"A1"}`, string(km.Value))

	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "booking.allocated", headers[HeaderEventType])
	assert.NotEmpty(t, headers[HeaderEventID])
	assert.NotEmpty(t, headers[HeaderTimestamp])
}

func TestPublish_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "bookings", "")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestPublish_FailureGoesToDLQ(t *testing.T) {
	boom := errors.New("connection refused")
	w := &fakeWriter{err: boom}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "bookings", "bookings.dlq")

	err := p.Publish(context.Background(), buildMessage(t))
	assert.ErrorIs(t, err, boom)
	require.Len(t, dlq.written, 1)

	found := false
	for _, h := range dlq.written[0].Headers {
		if h.Key == HeaderOriginalTopic {
			found = true
			assert.Equal(t, "bookings", string(h.Value))
		}
	}
	assert.True(t, found)
}

func TestPublish_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "bookings", "")
	var order []string
	for _, name := range []string{"outer", "inner"} {
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "bookings", "bookings.dlq")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.True(t, dlq.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
	assert.NoError(t, p.Close())
}

func TestBuild_ReportsEncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}
