// internal/contextutil/context.go
package contextutil

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Key is a type-safe key for context values
type Key string

const (
	// CorrelationIDKey is the key for the request correlation ID
	CorrelationIDKey Key = "context:correlation_id"

	// ClientIPKey is the key for the caller's IP address
	ClientIPKey Key = "context:client_ip"
)

// Headers carrying the correlation ID
const (
	CorrelationIDHeader = "X-Correlation-ID"
	RequestIDHeader     = "X-Request-ID"
)

// maxCorrelationIDLength caps caller-supplied IDs before they reach logs and downstream headers
const maxCorrelationIDLength = 128

// WithCorrelationID adds a correlation ID to a context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID retrieves a correlation ID from a context
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// WithClientIP adds the caller's IP address to a context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// GetClientIP retrieves the caller's IP address from a context
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIPKey).(string); ok {
		return ip
	}
	return ""
}

// CorrelationIDFromRequest returns the caller's correlation ID, or a new one
// when absent or unusable
func CorrelationIDFromRequest(r *http.Request) string {
	for _, header := range []string{CorrelationIDHeader, RequestIDHeader} {
		if id := strings.TrimSpace(r.Header.Get(header)); validCorrelationID(id) {
			return id
		}
	}
	return uuid.NewString()
}

func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// ClientIPFromRequest returns the remote host, or the first X-Forwarded-For
// hop when proxy headers are trusted
func ClientIPFromRequest(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
