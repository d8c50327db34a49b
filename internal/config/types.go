// internal/config/types.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrUnknownService is returned when no base URL is configured for a service
var ErrUnknownService = errors.New("unknown service")

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
		// TrustProxyHeaders takes the client IP from X-Forwarded-For
		TrustProxyHeaders bool
		// RequestBodyLimit caps inbound request bodies in bytes
		RequestBodyLimit int64
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds listener TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// Auth holds bearer token verification configuration
	Auth struct {
		// JWKSURL is the signing key set location, empty for issuer discovery
		JWKSURL string
		// CacheTTL is how long a fetched key set stays valid
		CacheTTL time.Duration
		// RefreshCooldown limits refreshes caused by unknown key ids
		RefreshCooldown time.Duration
		// FetchTimeout bounds a single key set fetch
		FetchTimeout time.Duration
		// Issuer is the expected iss claim
		Issuer string
		// Audience is the expected aud claim
		Audience string
		// VerifyTimeout bounds token verification
		VerifyTimeout time.Duration
		// ClockSkew is the leeway applied to temporal claims
		ClockSkew time.Duration
		// RequireExpiry rejects tokens without exp
		RequireExpiry bool
	}

	// Upstream holds configuration for downstream services
	Upstream struct {
		// Services maps service names to base URLs
		Services ServiceURLs
		// Timeout is the maximum time to wait for downstream responses
		Timeout time.Duration
		// CAPath is an optional CA bundle for downstream TLS
		CAPath string

		// Auth holds optional client credentials for downstream calls
		Auth struct {
			TokenURL     string
			ClientID     string
			ClientSecret string
			Scopes       []string
		}
	}

	// Audit holds audit event publishing configuration
	Audit struct {
		// Sink selects the publisher: log, redis or none
		Sink string
		// RedisURL is the redis connection URL for the redis sink
		RedisURL string
		// RedisStream is the stream events are appended to
		RedisStream string
		// PublishTimeout bounds one publish call
		PublishTimeout time.Duration
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
		// LogFormat is the log format (json, text, console)
		LogFormat string
	}
}

// ServiceURLs resolves downstream base URLs by service name
type ServiceURLs map[string]*url.URL

// ParseServiceURLs parses name=url entries into a ServiceURLs map
func ParseServiceURLs(entries []string) (ServiceURLs, error) {
	services := make(ServiceURLs, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, raw, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid service entry %q: expected name=url", entry)
		}
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid URL for service %q: %w", name, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("URL for service %q must be absolute", name)
		}
		services[name] = u
	}
	return services, nil
}

// Resolve returns the base URL configured for name
func (s ServiceURLs) Resolve(name string) (string, error) {
	u, ok := s[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Names returns the configured service names in sorted order
func (s ServiceURLs) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
