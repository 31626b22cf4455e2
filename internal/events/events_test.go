package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e, err := New(TypeVideoCompleted, VideoFinishedData{VideoID: "v1", Status: "COMPLETED", Qualities: []string{"360p"}})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TypeVideoCompleted, e.Type)

	var data VideoFinishedData
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Equal(t, "v1", data.VideoID)

	_, err = New("bad", make(chan int))
	assert.Error(t, err)
}

type fakeChannel struct {
	mu       sync.Mutex
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "learn.events"}

	e, err := New(TypeCertificateIssued, CertificateIssuedData{CertificateID: "c1"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	assert.Equal(t, "learn.events", ch.exchange)
	assert.Equal(t, TypeCertificateIssued, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, e.ID, ch.msg.MessageId)

	ch.err = errors.New("channel closed")
	assert.Error(t, p.Publish(context.Background(), e))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestKafkaPublisher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "learn-events")
	e, err := New(TypeVideoFailed, VideoFinishedData{VideoID: "v1", Status: "FAILED"})
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), e))
	assert.ErrorIs(t, p.Publish(context.Background(), e), sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

type countingPublisher struct {
	calls int
	err   error
}

func (c *countingPublisher) Publish(context.Context, *Event) error {
	c.calls++
	return c.err
}

func (c *countingPublisher) Close() error { return nil }

func TestGuarded(t *testing.T) {
	inner := &countingPublisher{err: errors.New("down")}
	g := NewGuarded(inner, "test", 2, time.Minute)
	now := time.Now()
	g.now = func() time.Time { return now }

	e, _ := New(TypeVideoCompleted, nil)
	ctx := context.Background()

	assert.Error(t, g.Publish(ctx, e))
	assert.Error(t, g.Publish(ctx, e))
	assert.Equal(t, "open", g.State())

	assert.ErrorIs(t, g.Publish(ctx, e), ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)

	now = now.Add(2 * time.Minute)
	inner.err = nil
	assert.NoError(t, g.Publish(ctx, e))
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, 3, inner.calls)
}

func TestGuarded_HalfOpenFailureReopens(t *testing.T) {
	inner := &countingPublisher{err: errors.New("down")}
	g := NewGuarded(inner, "test", 1, time.Second)
	now := time.Now()
	g.now = func() time.Time { return now }

	e, _ := New(TypeVideoCompleted, nil)
	_ = g.Publish(context.Background(), e)
	assert.Equal(t, "open", g.State())

	now = now.Add(2 * time.Second)
	assert.Error(t, g.Publish(context.Background(), e))
	assert.Equal(t, "open", g.State())
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), &Event{}))
	assert.NoError(t, p.Close())
}
