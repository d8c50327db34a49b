package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:          TypeAuthFailure,
		CorrelationID: "corr-1",
		IP:            "203.0.113.7",
		Metadata: map[string]string{
			"reason": ReasonMissingToken,
			"path":   "/like",
			"method": "POST",
		},
	}
}

func TestRedisPublisherAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewRedisPublisher(client, "apigateway:audit", 0)
	require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))

	entries, err := client.XRange(context.Background(), "apigateway:audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "auth.failure", entries[0].Values["type"])

	var got Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["payload"].(string)), &got))
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, ReasonMissingToken, got.Reason())
	assert.Empty(t, got.Subject)
}

func TestRedisPublisherFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	publisher, err := NewRedisPublisherFromURL("redis://"+mr.Addr()+"/0", "audit", 0)
	require.NoError(t, err)
	defer publisher.Close()

	require.NoError(t, publisher.Ping(context.Background()))
	require.NoError(t, publisher.Publish(context.Background(), sampleEvent()))

	_, err = NewRedisPublisherFromURL("not a url", "audit", 0)
	assert.Error(t, err)
}

func TestRedisPublisherReportsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	err = NewRedisPublisher(client, "audit", 0).Publish(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestEmitterSwallowsPublisherErrors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLoggerWithWriter(&buf, "info", "json")
	require.NoError(t, err)

	failing := PublisherFunc(func(context.Context, Event) error {
		return errors.New("stream unavailable")
	})
	emitter := NewEmitter(failing, time.Second, logger, metrics.NewCollector())

	assert.NotPanics(t, func() { emitter.Emit(context.Background(), sampleEvent()) })
	assert.Contains(t, buf.String(), "Failed to publish audit event")
	assert.Contains(t, buf.String(), "stream unavailable")
}

func TestEmitterRecoversPublisherPanic(t *testing.T) {
	panicking := PublisherFunc(func(context.Context, Event) error {
		panic("nil stream")
	})
	emitter := NewEmitter(panicking, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())

	assert.NotPanics(t, func() { emitter.Emit(context.Background(), sampleEvent()) })
}

func TestEmitterSurvivesCancelledRequest(t *testing.T) {
	memory := &MemoryPublisher{}
	var sawLiveContext bool
	publisher := PublisherFunc(func(ctx context.Context, event Event) error {
		sawLiveContext = ctx.Err() == nil
		return memory.Publish(ctx, event)
	})
	emitter := NewEmitter(publisher, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emitter.Emit(ctx, sampleEvent())

	assert.True(t, sawLiveContext)
	require.Len(t, memory.Events(), 1)
	assert.False(t, memory.Events()[0].Timestamp.IsZero())
}

func TestEmitterBoundsSlowPublisher(t *testing.T) {
	slow := PublisherFunc(func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	emitter := NewEmitter(slow, 20*time.Millisecond, logging.NewDiscardLogger(), metrics.NewCollector())

	start := time.Now()
	emitter.Emit(context.Background(), sampleEvent())
	assert.Less(t, time.Since(start), time.Second)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *Emitter
	assert.NotPanics(t, func() { emitter.Emit(context.Background(), sampleEvent()) })
}
