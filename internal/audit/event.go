// internal/audit/event.go
package audit

import (
	"context"
	"time"
)

// Type names an audit event kind
type Type string

const (
	// TypeAuthFailure is emitted when bearer authentication fails
	TypeAuthFailure Type = "auth.failure"
	// TypeAccessDenied is emitted when an authenticated caller fails the user type gate
	TypeAccessDenied Type = "authz.denied"
)

// Reasons recorded in Event.Metadata["reason"]
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonForbidden    = "forbidden"
)

// Event is a security-relevant occurrence recorded at the failure site
type Event struct {
	Type          Type              `json:"type"`
	CorrelationID string            `json:"correlationId"`
	Subject       string            `json:"subject,omitempty"`
	IP            string            `json:"ip"`
	TenantID      string            `json:"tenantId,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Reason returns the recorded failure reason
func (e Event) Reason() string {
	return e.Metadata["reason"]
}

// Publisher hands events to an audit transport
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
