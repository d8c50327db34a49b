// internal/proxy/forwarder/credentials.go
package forwarder

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CredentialsConfig holds service-to-service client credentials
type CredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// NewTokenSource returns a cached client-credentials token source, or nil
// when no token URL is configured. Tokens are fetched with client.
func NewTokenSource(ctx context.Context, cfg CredentialsConfig, client *http.Client) oauth2.TokenSource {
	if cfg.TokenURL == "" {
		return nil
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return cc.TokenSource(ctx)
}
