package bearer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apigateway/internal/audit"
	"apigateway/internal/auth"
	"apigateway/internal/auth/jwks"
	"apigateway/internal/contextutil"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"
	"apigateway/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T, ti *testutil.TokenIssuer) *Verifier {
	t.Helper()
	cache, err := jwks.New(jwks.Config{URL: ti.KeySetURL(), TTL: time.Minute}, logging.NewDiscardLogger(), metrics.NewCollector())
	require.NoError(t, err)

	verifier, err := NewVerifier(cache, VerifierConfig{
		Issuer:        ti.Issuer,
		Audience:      ti.Audience,
		RequireExpiry: true,
		Timeout:       2 * time.Second,
	})
	require.NoError(t, err)
	return verifier
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"BEARER abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearerabc", "", false},
	}

	for _, tt := range tests {
		token, ok := ExtractToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestVerifyReturnsClaimsUnmodified(t *testing.T) {
	ti := testutil.NewTokenIssuer(t)
	verifier := newVerifier(t, ti)

	token := ti.Sign(t, ti.Claims("user-1", map[string]any{"userType": "customer", "plan": "gold"}))
	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "customer", claims["userType"])
	assert.Equal(t, "gold", claims["plan"])
}

func TestVerifyAcceptsECAndKeylessTokens(t *testing.T) {
	ti := testutil.NewTokenIssuer(t)
	verifier := newVerifier(t, ti)

	_, err := verifier.Verify(context.Background(), ti.SignES256(t, ti.Claims("ec-user", nil)))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), ti.SignWithoutKeyID(t, ti.Claims("no-kid", nil)))
	require.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	ti := testutil.NewTokenIssuer(t)
	verifier := newVerifier(t, ti)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, ti.Claims("attacker", nil))
	forged.Header["kid"] = ti.KeyID
	forgedToken, err := forged.SignedString(otherKey)
	require.NoError(t, err)

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ti.Claims("attacker", nil)).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExp := ti.Claims("u", nil)
	delete(noExp, "exp")

	tests := map[string]string{
		"wrong signature": forgedToken,
		"wrong issuer":    ti.Sign(t, ti.Claims("u", map[string]any{"iss": "https://evil.test"})),
		"wrong audience":  ti.Sign(t, ti.Claims("u", map[string]any{"aud": "someone-else"})),
		"expired":         ti.Sign(t, ti.Claims("u", map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})),
		"not yet valid":   ti.Sign(t, ti.Claims("u", map[string]any{"nbf": time.Now().Add(time.Hour).Unix()})),
		"missing exp":     ti.Sign(t, noExp),
		"hmac algorithm":  hmacToken,
		"garbage":         "not-a-jwt",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyUnknownKidIsInvalid(t *testing.T) {
	ti := testutil.NewTokenIssuer(t)
	verifier := newVerifier(t, ti)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, ti.Claims("u", nil))
	token.Header["kid"] = "rotated-away"
	signed, err := token.SignedString(ti.RSAKey)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwks.ErrKeyNotFound)
}

func TestNewVerifierRequiresIssuerAndAudience(t *testing.T) {
	_, err := NewVerifier(nil, VerifierConfig{Audience: "a"})
	assert.Error(t, err)
	_, err = NewVerifier(nil, VerifierConfig{Issuer: "i"})
	assert.Error(t, err)
}

type stubVerifier struct {
	claims map[string]any
	err    error
	calls  int
}

func (s *stubVerifier) Verify(context.Context, string) (map[string]any, error) {
	s.calls++
	return s.claims, s.err
}

func serve(a *Authenticator, r *http.Request) (*httptest.ResponseRecorder, *auth.Identity, bool) {
	var seen *auth.Identity
	called := false
	handler := a.GetMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w, seen, called
}

func newRequest(header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/like", nil)
	r.RemoteAddr = "198.51.100.4:4000"
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	ctx := contextutil.WithCorrelationID(r.Context(), "corr-7")
	return r.WithContext(ctx)
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope httputils.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return string(envelope.Error.Code)
}

func TestAuthenticatorMissingToken(t *testing.T) {
	publisher := &audit.MemoryPublisher{}
	emitter := audit.NewEmitter(publisher, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())
	verifier := &stubVerifier{}
	a := New(verifier, emitter, logging.NewDiscardLogger(), metrics.NewCollector())

	for _, header := range []string{"", "Basic Zm9vOmJhcg==", "bearer lower"} {
		before := len(publisher.Events())
		w, _, called := serve(a, newRequest(header))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "MISSING_TOKEN", decodeCode(t, w))
		assert.False(t, called)

		events := publisher.Events()
		require.Len(t, events, before+1)
		event := events[len(events)-1]
		assert.Equal(t, audit.TypeAuthFailure, event.Type)
		assert.Equal(t, audit.ReasonMissingToken, event.Reason())
		assert.Equal(t, "corr-7", event.CorrelationID)
		assert.Equal(t, "198.51.100.4", event.IP)
		assert.Equal(t, "/like", event.Metadata["path"])
		assert.Equal(t, http.MethodPost, event.Metadata["method"])
		assert.Empty(t, event.Subject)
	}
	assert.Zero(t, verifier.calls)
}

func TestAuthenticatorInvalidToken(t *testing.T) {
	publisher := &audit.MemoryPublisher{}
	emitter := audit.NewEmitter(publisher, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())
	a := New(&stubVerifier{err: ErrInvalidToken}, emitter, logging.NewDiscardLogger(), metrics.NewCollector())

	w, _, called := serve(a, newRequest("Bearer bad.token.value"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeCode(t, w))
	assert.NotContains(t, w.Body.String(), "invalid token:")
	assert.False(t, called)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ReasonInvalidToken, events[0].Reason())
}

func TestAuthenticatorAuditFailureKeepsResponse(t *testing.T) {
	failing := audit.PublisherFunc(func(context.Context, audit.Event) error {
		return errors.New("redis down")
	})
	emitter := audit.NewEmitter(failing, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())
	a := New(&stubVerifier{}, emitter, logging.NewDiscardLogger(), metrics.NewCollector())

	w, _, called := serve(a, newRequest(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_TOKEN", decodeCode(t, w))
	assert.False(t, called)
}

func TestAuthenticatorProjectsIdentity(t *testing.T) {
	ti := testutil.NewTokenIssuer(t)
	publisher := &audit.MemoryPublisher{}
	emitter := audit.NewEmitter(publisher, time.Second, logging.NewDiscardLogger(), metrics.NewCollector())
	a := New(newVerifier(t, ti), emitter, logging.NewDiscardLogger(), metrics.NewCollector())

	token := ti.Sign(t, ti.Claims("user-9", map[string]any{
		"userType": "customer",
		"roles":    []string{"admin"},
		"id":       "someone-else",
		"tenant":   "tenant-1",
	}))
	w, identity, called := serve(a, newRequest("Bearer "+token))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, called)
	require.NotNil(t, identity)
	assert.Equal(t, "user-9", identity.ID)
	assert.Equal(t, auth.UserTypeCustomer, identity.UserType)
	assert.Empty(t, identity.Roles)
	assert.Equal(t, "tenant-1", identity.TenantID)
	assert.Empty(t, publisher.Events())
	assert.Equal(t, "bearer", a.Name())
}
