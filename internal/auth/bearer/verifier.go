// internal/auth/bearer/verifier.go
package bearer

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure
var ErrInvalidToken = errors.New("invalid token")

// DefaultVerifyTimeout bounds a verification including key lookups
const DefaultVerifyTimeout = 5 * time.Second

// signingMethods are the asymmetric algorithms accepted from the key set.
// HMAC is excluded so a public key can never be used as a shared secret.
var signingMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// KeySource provides verification keys
type KeySource interface {
	GetKey(ctx context.Context, kid string) (crypto.PublicKey, error)
	Keys(ctx context.Context) ([]crypto.PublicKey, error)
}

// VerifierConfig holds claims verification settings
type VerifierConfig struct {
	// Issuer must equal the iss claim
	Issuer string
	// Audience must be present in the aud claim
	Audience string
	// Leeway is applied to exp and nbf
	Leeway time.Duration
	// RequireExpiry rejects tokens without exp
	RequireExpiry bool
	// Timeout bounds one verification
	Timeout time.Duration
}

// Verifier checks token signatures against a key source and validates the
// registered claims
type Verifier struct {
	keys    KeySource
	parser  *jwt.Parser
	timeout time.Duration
}

// NewVerifier creates a verifier
func NewVerifier(keys KeySource, config VerifierConfig) (*Verifier, error) {
	if config.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if config.Audience == "" {
		return nil, errors.New("token audience is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultVerifyTimeout
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingMethods),
		jwt.WithIssuer(config.Issuer),
		jwt.WithAudience(config.Audience),
		jwt.WithLeeway(config.Leeway),
	}
	if config.RequireExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	return &Verifier{
		keys:    keys,
		parser:  jwt.NewParser(opts...),
		timeout: config.Timeout,
	}, nil
}

// Verify returns the token's claims unmodified once the signature and the
// iss, aud, exp and nbf claims check out
func (v *Verifier) Verify(ctx context.Context, token string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); ok && kid != "" {
			return v.keys.GetKey(ctx, kid)
		}

		keys, err := v.keys.Keys(ctx)
		if err != nil {
			return nil, err
		}
		set := jwt.VerificationKeySet{}
		for _, key := range keys {
			set.Keys = append(set.Keys, key)
		}
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}
