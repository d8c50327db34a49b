// internal/audit/publishers.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"apigateway/internal/observability/logging"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends events to a Redis stream
type RedisPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher writing to stream. A positive maxLen
// trims the stream approximately to that many entries.
func NewRedisPublisher(client redis.UniversalClient, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen}
}

// NewRedisPublisherFromURL connects to the redis instance at rawURL
func NewRedisPublisherFromURL(rawURL, stream string, maxLen int64) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid audit redis URL: %w", err)
	}
	return NewRedisPublisher(redis.NewClient(opts), stream, maxLen), nil
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":    string(event.Type),
			"payload": string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("appending audit event to %s: %w", p.stream, err)
	}
	return nil
}

// Ping checks connectivity to redis
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the redis connection pool
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher writes events to the structured log
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.WithModule("audit")}
}

// Publish implements Publisher
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.WarnContext(ctx, "Audit event",
		"type", event.Type,
		logging.CorrelationIDKey, event.CorrelationID,
		"subject", event.Subject,
		"ip", event.IP,
		"tenant_id", event.TenantID,
		"reason", event.Reason(),
		"path", event.Metadata["path"],
		"method", event.Metadata["method"],
	)
	return nil
}

// NopPublisher drops events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MemoryPublisher records events in memory
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
