// internal/server/factory.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"apigateway/internal/audit"
	"apigateway/internal/auth/bearer"
	"apigateway/internal/auth/jwks"
	"apigateway/internal/authz"
	"apigateway/internal/config"
	"apigateway/internal/engagement"
	"apigateway/internal/httpclient"
	"apigateway/internal/observability"
	"apigateway/internal/observability/logging"
	"apigateway/internal/proxy/forwarder"
	"apigateway/internal/proxy/router"
	tlsconfig "apigateway/internal/tls"
)

// auditStreamMaxLen caps the redis audit stream
const auditStreamMaxLen = 100_000

// Option customizes how the gateway is assembled
type Option func(*options)

type options struct {
	publisher audit.Publisher
}

// WithAuditPublisher replaces the publisher selected by the audit sink setting
func WithAuditPublisher(p audit.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// Gateway is the assembled request pipeline
type Gateway struct {
	// Handler serves every gateway route behind the observability middleware
	Handler http.Handler

	closers []io.Closer
}

// Close releases connections held by the pipeline's components
func (g *Gateway) Close() error {
	var errs []error
	for _, c := range g.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewFromConfig creates a new server from configuration
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Initialize observability
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Initialize listener TLS configuration
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup := &tlsconfig.Config{
			Logger:   logger,
			CertPath: cfg.TLS.CertPath,
			KeyPath:  cfg.TLS.KeyPath,
		}
		tlsCfg, err = tlsSetup.GetTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	gateway, err := NewGateway(ctx, cfg, obs)
	if err != nil {
		return nil, err
	}

	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	srv := New(serverConfig, gateway.Handler, obs.MetricsHandler(), logger)
	srv.onStop = gateway.Close
	return srv, nil
}

// NewGateway wires the request pipeline: observability, then per route
// authentication, user type authorization and the business handler.
func NewGateway(ctx context.Context, cfg *config.Config, obs *observability.Provider, opts ...Option) (*Gateway, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := obs.Logger
	metricsCollector := obs.Metrics
	gateway := &Gateway{}

	if _, err := cfg.Upstream.Services.Resolve(engagement.ServiceName); err != nil {
		return nil, fmt.Errorf("downstream service %q must be configured in SERVICE_URLS: %w", engagement.ServiceName, err)
	}

	// Outbound clients
	clientTLS, err := (&tlsconfig.Config{Logger: logger, UpstreamCAPath: cfg.Upstream.CAPath}).GetClientTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream TLS configuration: %w", err)
	}
	upstreamClient := httpclient.New(httpclient.Config{Timeout: cfg.Upstream.Timeout, TLSConfig: clientTLS})
	keyClient := httpclient.New(httpclient.Config{Timeout: cfg.Auth.FetchTimeout})

	// Signing keys and token verification
	keySetURL := cfg.Auth.JWKSURL
	if keySetURL == "" {
		keySetURL, err = jwks.DiscoverKeySetURL(ctx, cfg.Auth.Issuer, keyClient.HTTPClient())
		if err != nil {
			return nil, err
		}
		logger.Info("Discovered signing key set", "issuer", cfg.Auth.Issuer, "jwks_url", keySetURL)
	}

	keys, err := jwks.New(jwks.Config{
		URL:             keySetURL,
		TTL:             cfg.Auth.CacheTTL,
		RefreshCooldown: cfg.Auth.RefreshCooldown,
		FetchTimeout:    cfg.Auth.FetchTimeout,
		Client:          keyClient,
	}, logger, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key set cache: %w", err)
	}

	verifier, err := bearer.NewVerifier(keys, bearer.VerifierConfig{
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		Leeway:        cfg.Auth.ClockSkew,
		RequireExpiry: cfg.Auth.RequireExpiry,
		Timeout:       cfg.Auth.VerifyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	// Audit
	publisher := o.publisher
	var redisPublisher *audit.RedisPublisher
	if publisher == nil {
		switch cfg.Audit.Sink {
		case "redis":
			redisPublisher, err = audit.NewRedisPublisherFromURL(cfg.Audit.RedisURL, cfg.Audit.RedisStream, auditStreamMaxLen)
			if err != nil {
				return nil, err
			}
			gateway.closers = append(gateway.closers, redisPublisher)
			publisher = redisPublisher
			logger.Info("Publishing audit events to redis",
				"url", logging.RedactStringURL(cfg.Audit.RedisURL),
				"stream", cfg.Audit.RedisStream,
			)
		case "none":
			publisher = audit.NopPublisher{}
		default:
			publisher = audit.NewLogPublisher(logger)
		}
	}
	emitter := audit.NewEmitter(publisher, cfg.Audit.PublishTimeout, logger, metricsCollector)

	// Interceptors
	authenticator := bearer.New(verifier, emitter, logger, metricsCollector)
	gate := authz.NewGate(emitter, logger, metricsCollector)

	// Downstream forwarding
	tokens := forwarder.NewTokenSource(ctx, forwarder.CredentialsConfig{
		TokenURL:     cfg.Upstream.Auth.TokenURL,
		ClientID:     cfg.Upstream.Auth.ClientID,
		ClientSecret: cfg.Upstream.Auth.ClientSecret,
		Scopes:       cfg.Upstream.Auth.Scopes,
	}, upstreamClient.HTTPClient())
	fwd := forwarder.New(cfg.Upstream.Services, upstreamClient, tokens, logger, metricsCollector)

	// Routes
	r := router.New(authenticator, gate, logger)
	r.RegisterAll(engagement.NewHandler(fwd, cfg.Server.RequestBodyLimit, logger).Routes())
	r.AddReadinessCheck("jwks", func(ctx context.Context) error {
		_, err := keys.Keys(ctx)
		return err
	})
	if redisPublisher != nil {
		r.AddReadinessCheck("audit", redisPublisher.Ping)
	}

	logger.Info("Gateway pipeline ready",
		"services", cfg.Upstream.Services.Names(),
		"audit_sink", cfg.Audit.Sink,
		"service_credentials", tokens != nil,
	)

	gateway.Handler = obs.Middleware(r)
	return gateway, nil
}
