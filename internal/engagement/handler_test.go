package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apigateway/internal/apierr"
	"apigateway/internal/auth"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/proxy/forwarder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoID = "11111111-1111-1111-1111-111111111111"

type fakeForwarder struct {
	calls    []forwarder.Request
	response []byte
	err      error
}

func (f *fakeForwarder) Forward(_ context.Context, req forwarder.Request) ([]byte, error) {
	f.calls = append(f.calls, req)
	return f.response, f.err
}

func serve(t *testing.T, h *Handler, body string, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/like", strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	h.Like(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputils.ErrorBody {
	t.Helper()
	var envelope httputils.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error
}

func TestLike_DefaultsActionAndForwards(t *testing.T) {
	fwd := &fakeForwarder{response: []byte(`{"likes":5}`)}
	h := NewHandler(fwd, 0, logging.NewDiscardLogger())
	identity := &auth.Identity{ID: "user-1", Subject: "user-1", UserType: auth.UserTypeCustomer}

	rec := serve(t, h, `{"videoId":"`+videoID+`"}`, identity)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"likes":5}`, rec.Body.String())

	require.Len(t, fwd.calls, 1)
	call := fwd.calls[0]
	assert.Equal(t, ServiceName, call.Service)
	assert.Equal(t, EventsPath, call.Path)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Same(t, identity, call.Identity)
	assert.JSONEq(t, `{"videoId":"`+videoID+`","action":"like"}`, string(call.Body))
}

func TestLike_ForwardsExplicitActionAndMetadata(t *testing.T) {
	fwd := &fakeForwarder{response: []byte(`{"likes":1,"views":10}`)}
	h := NewHandler(fwd, 0, logging.NewDiscardLogger())

	rec := serve(t, h, `{"videoId":"`+videoID+`","action":"view","metadata":{"source":"tv"}}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fwd.calls, 1)
	assert.JSONEq(t, `{"videoId":"`+videoID+`","action":"view","metadata":{"source":"tv"}}`, string(fwd.calls[0].Body))
}

func TestLike_AcceptsUppercaseVideoID(t *testing.T) {
	const upper = "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11"
	fwd := &fakeForwarder{response: []byte(`{"likes":1}`)}
	h := NewHandler(fwd, 0, logging.NewDiscardLogger())

	rec := serve(t, h, `{"videoId":"`+upper+`"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, fwd.calls, 1)
	assert.JSONEq(t, `{"videoId":"`+upper+`","action":"like"}`, string(fwd.calls[0].Body))
}

func TestLike_RejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing video id", body: `{}`, field: "videoId"},
		{name: "video id not a uuid", body: `{"videoId":"abc"}`, field: "videoId"},
		{name: "unknown action", body: `{"videoId":"` + videoID + `","action":"share"}`, field: "action"},
		{name: "unknown source", body: `{"videoId":"` + videoID + `","metadata":{"source":"radio"}}`, field: "metadata.source"},
		{name: "malformed json", body: `{"videoId":`, field: "body"},
		{name: "empty body", body: ``, field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd := &fakeForwarder{}
			h := NewHandler(fwd, 0, logging.NewDiscardLogger())

			rec := serve(t, h, tt.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, apierr.CodeValidation, body.Code)
			assert.Contains(t, rec.Body.String(), `"field":"`+tt.field+`"`)
			assert.Empty(t, fwd.calls, "invalid bodies never reach the downstream service")
		})
	}
}

func TestLike_BodyLimit(t *testing.T) {
	fwd := &fakeForwarder{}
	h := NewHandler(fwd, 32, logging.NewDiscardLogger())

	rec := serve(t, h, `{"videoId":"`+videoID+`","action":"like"}`, nil)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, apierr.CodePayloadTooLarge, decodeError(t, rec).Code)
	assert.Empty(t, fwd.calls)
}

func TestLike_ResponseContract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		status   int
	}{
		{name: "likes only", response: `{"likes":5}`, status: http.StatusOK},
		{name: "views only", response: `{"views":0}`, status: http.StatusOK},
		{name: "empty object", response: `{}`, status: http.StatusInternalServerError},
		{name: "negative likes", response: `{"likes":-1}`, status: http.StatusInternalServerError},
		{name: "wrong type", response: `{"likes":"5"}`, status: http.StatusInternalServerError},
		{name: "not json", response: `<html>`, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeForwarder{response: []byte(tt.response)}, 0, logging.NewDiscardLogger())

			rec := serve(t, h, `{"videoId":"`+videoID+`"}`, nil)

			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				body := decodeError(t, rec)
				assert.Equal(t, apierr.CodeContractViolation, body.Code)
				assert.Equal(t, "Invalid response from upstream", body.Message)
			}
		})
	}
}

func TestLike_StripsUnknownResponseFields(t *testing.T) {
	h := NewHandler(&fakeForwarder{response: []byte(`{"likes":2,"internal":"secret"}`)}, 0, logging.NewDiscardLogger())

	rec := serve(t, h, `{"videoId":"`+videoID+`"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"likes":2}`, rec.Body.String())
}

func TestLike_ForwarderErrorsAreRendered(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   apierr.Code
	}{
		{name: "upstream unavailable", err: apierr.UpstreamUnavailable(errors.New("503")), status: http.StatusBadGateway, code: apierr.CodeUpstreamUnavailable},
		{name: "upstream rejected", err: apierr.UpstreamRejected(http.StatusConflict, errors.New("409")), status: http.StatusConflict, code: apierr.CodeUpstreamRejected},
		{name: "unclassified", err: errors.New("boom"), status: http.StatusInternalServerError, code: apierr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeForwarder{err: tt.err}, 0, logging.NewDiscardLogger())

			rec := serve(t, h, `{"videoId":"`+videoID+`"}`, nil)

			require.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestRoutes(t *testing.T) {
	h := NewHandler(&fakeForwarder{}, 0, logging.NewDiscardLogger())

	routes := h.Routes()

	require.Len(t, routes, 1)
	assert.Equal(t, http.MethodPost, routes[0].Method)
	assert.Equal(t, "/like", routes[0].Path)
	assert.False(t, routes[0].Policy.Public)
	assert.Equal(t, []string{"user", "admin"}, routes[0].Policy.AllowedUserTypes)
}
