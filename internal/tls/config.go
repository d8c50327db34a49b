// internal/tls/config.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"apigateway/internal/observability/logging"
)

// Config holds the TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string

	// UpstreamCAPath is an optional CA bundle trusted for downstream calls
	// in addition to the system roots
	UpstreamCAPath string
}

// GetTLSConfig creates the TLS configuration for the gateway listener
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	c.Logger.Debug("Initializing listener TLS configuration")

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}

	c.Logger.Info("Listener TLS configuration successful", "cert", c.CertPath)
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// GetClientTLSConfig creates the TLS configuration for downstream calls.
// It returns nil when no extra CA is configured so the client keeps its defaults.
func (c *Config) GetClientTLSConfig() (*tls.Config, error) {
	if c.UpstreamCAPath == "" {
		return nil, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		c.Logger.Warn("System certificate pool unavailable, trusting only the upstream CA", logging.Err(err))
		pool = x509.NewCertPool()
	}

	pem, err := os.ReadFile(c.UpstreamCAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream CA file: %w", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse upstream CA file: %s", c.UpstreamCAPath)
	}
	c.Logger.Debug("Upstream CA loaded", "ca", c.UpstreamCAPath)

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
