package contextutil

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(CorrelationIDHeader, "abc-123")
	assert.Equal(t, "abc-123", CorrelationIDFromRequest(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set(RequestIDHeader, "req-9")
	assert.Equal(t, "req-9", CorrelationIDFromRequest(r))

	r = httptest.NewRequest("GET", "/", nil)
	_, err := uuid.Parse(CorrelationIDFromRequest(r))
	assert.NoError(t, err)
}

func TestCorrelationIDRejectsUnsafeValues(t *testing.T) {
	for _, value := range []string{"has space", "line\nbreak", strings.Repeat("a", 129)} {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(CorrelationIDHeader, value)
		got := CorrelationIDFromRequest(r)
		assert.NotEqual(t, value, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	}
}

func TestClientIPFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:51234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "10.0.0.5", ClientIPFromRequest(r, false))
	assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, true))

	r.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "10.0.0.5", ClientIPFromRequest(r, true))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))
	assert.Empty(t, GetClientIP(ctx))

	ctx = WithCorrelationID(ctx, "c1")
	ctx = WithClientIP(ctx, "198.51.100.1")
	assert.Equal(t, "c1", GetCorrelationID(ctx))
	assert.Equal(t, "198.51.100.1", GetClientIP(ctx))
}
