// internal/audit/emitter.go
package audit

import (
	"context"
	"fmt"
	"time"

	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"
)

const DefaultPublishTimeout = 2 * time.Second

// Emitter publishes audit events on a best-effort basis
type Emitter struct {
	publisher Publisher
	timeout   time.Duration
	logger    *logging.Logger
	metrics   *metrics.Collector
}

// NewEmitter creates an emitter around publisher
func NewEmitter(publisher Publisher, timeout time.Duration, logger *logging.Logger, metrics *metrics.Collector) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Emitter{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger.WithModule("audit"),
		metrics:   metrics,
	}
}

// Emit publishes event and returns once the publisher is done or has timed out.
// Failures, including publisher panics, are logged and never returned: the
// response that triggered the event has already been decided.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	// A client disconnect must not drop the event
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	err := e.publish(publishCtx, event)
	e.metrics.RecordAuditPublish(string(event.Type), err == nil)
	if err != nil {
		logging.FromContextOr(ctx, e.logger).Error("Failed to publish audit event",
			"type", event.Type,
			"reason", event.Reason(),
			logging.Err(err),
		)
	}
}

func (e *Emitter) publish(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit publisher panicked: %v", r)
		}
	}()
	return e.publisher.Publish(ctx, event)
}
