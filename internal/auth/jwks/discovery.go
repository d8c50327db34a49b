// internal/auth/jwks/discovery.go
package jwks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DiscoverKeySetURL reads jwks_uri from the issuer's OpenID configuration.
// go-oidc also checks that the advertised issuer matches.
func DiscoverKeySetURL(ctx context.Context, issuer string, client *http.Client) (string, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("failed to discover OpenID configuration for %s: %w", issuer, err)
	}

	var claims struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&claims); err != nil {
		return "", fmt.Errorf("failed to parse OpenID configuration: %w", err)
	}
	if claims.JWKSURL == "" {
		return "", fmt.Errorf("OpenID configuration for %s has no jwks_uri", issuer)
	}

	return claims.JWKSURL, nil
}
