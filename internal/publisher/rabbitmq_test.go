package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vod_archiver/internal/domain"
)

type recordingChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
	closed   bool
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange = exchange
	c.key = key
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) Close() error {
	c.closed = true
	return nil
}

func newTestPublisher(ch channel) *RabbitMQ {
	return &RabbitMQ{
		channel:    ch,
		exchange:   "vod_archiver",
		routingKey: "videos.archived",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRabbitMQ_Publish(t *testing.T) {
	ch := &recordingChannel{}
	pub := newTestPublisher(ch)

	video := &domain.Video{ID: 7, RemoteID: "2412345678", Title: "Late night", Downloaded: true, LocalPath: "/v/a.mp4"}
	require.NoError(t, pub.Publish(context.Background(), "run-1", video))

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "vod_archiver", ch.exchange)
	assert.Equal(t, "videos.archived", ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.NotEmpty(t, msg.MessageId)

	var received VideoMessage
	require.NoError(t, json.Unmarshal(msg.Body, &received))
	assert.Equal(t, msg.MessageId, received.ID)
	assert.Equal(t, ActionArchived, received.Action)
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, int64(7), received.Video.ID)
	assert.Equal(t, "2412345678", received.Video.RemoteID)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), received.Timestamp)
}

func TestRabbitMQ_PublishError(t *testing.T) {
	pub := newTestPublisher(&recordingChannel{err: amqp.ErrClosed})

	err := pub.Publish(context.Background(), "run-1", &domain.Video{RemoteID: "1"})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestRabbitMQ_Close(t *testing.T) {
	ch := &recordingChannel{}
	pub := newTestPublisher(ch)

	assert.NoError(t, pub.Close())
	assert.True(t, ch.closed)
}
