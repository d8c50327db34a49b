package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromClassifiesWrappedErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := fmt.Errorf("forward: %w", UpstreamUnavailable(cause))

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeUpstreamUnavailable, got.Code)
	assert.Equal(t, http.StatusBadGateway, got.Status)
	assert.ErrorIs(t, got, cause)
}

func TestFromDefaultsToInternal(t *testing.T) {
	got := From(errors.New("boom"))
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.NotContains(t, got.Message, "boom")
	assert.Nil(t, From(nil))
}

func TestUpstreamRejectedKeepsStatus(t *testing.T) {
	err := UpstreamRejected(http.StatusNotFound, nil)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, HasCode(err, CodeUpstreamRejected))
	assert.False(t, HasCode(err, CodeUpstreamUnavailable))
}
