// internal/testutil/tokens.go
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	TestIssuer   = "https://issuer.test"
	TestAudience = "apigateway"
	TestKeyID    = "test-key-1"
)

// TokenIssuer signs test tokens and serves the matching key set
type TokenIssuer struct {
	Server   *httptest.Server
	RSAKey   *rsa.PrivateKey
	ECKey    *ecdsa.PrivateKey
	KeyID    string
	ECKeyID  string
	Fetches  atomic.Int32
	Issuer   string
	Audience string
}

// NewTokenIssuer starts a key set server publishing one RSA and one EC key
func NewTokenIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "failed to generate ECDSA key")

	ti := &TokenIssuer{
		RSAKey:   rsaKey,
		ECKey:    ecKey,
		KeyID:    TestKeyID,
		ECKeyID:  "test-key-ec",
		Issuer:   TestIssuer,
		Audience: TestAudience,
	}

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &rsaKey.PublicKey, KeyID: ti.KeyID, Algorithm: "RS256", Use: "sig"},
		{Key: &ecKey.PublicKey, KeyID: ti.ECKeyID, Algorithm: "ES256", Use: "sig"},
	}}

	ti.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ti.Fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(ti.Server.Close)

	return ti
}

// KeySetURL is the location of the published key set
func (ti *TokenIssuer) KeySetURL() string {
	return ti.Server.URL + "/.well-known/jwks.json"
}

// Claims returns valid registered claims for subject merged with extra
func (ti *TokenIssuer) Claims(subject string, extra map[string]any) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": ti.Issuer,
		"aud": ti.Audience,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return claims
}

// Sign creates an RS256 token carrying the issuer's key id
func (ti *TokenIssuer) Sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ti.KeyID
	signed, err := token.SignedString(ti.RSAKey)
	require.NoError(t, err, "failed to sign RSA token")
	return signed
}

// SignES256 creates an ES256 token with the EC key id
func (ti *TokenIssuer) SignES256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = ti.ECKeyID
	signed, err := token.SignedString(ti.ECKey)
	require.NoError(t, err, "failed to sign ECDSA token")
	return signed
}

// SignWithoutKeyID creates an RS256 token with no kid header
func (ti *TokenIssuer) SignWithoutKeyID(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ti.RSAKey)
	require.NoError(t, err, "failed to sign RSA token")
	return signed
}

// Token is shorthand for a valid token of the given user type
func (ti *TokenIssuer) Token(t *testing.T, subject, userType string) string {
	t.Helper()
	return ti.Sign(t, ti.Claims(subject, map[string]any{"userType": userType}))
}
