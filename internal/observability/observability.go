// internal/observability/observability.go
package observability

import (
	"net/http"
	"time"

	"apigateway/internal/config"
	"apigateway/internal/contextutil"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"
)

// Provider provides observability capabilities
type Provider struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector

	trustProxyHeaders bool
}

// NewProvider creates a new observability provider
func NewProvider(cfg *config.Config) (*Provider, error) {
	logger, err := logging.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}

	return NewProviderWithLogger(logger, cfg.Server.TrustProxyHeaders), nil
}

// NewProviderWithLogger creates a provider around an existing logger
func NewProviderWithLogger(logger *logging.Logger, trustProxyHeaders bool) *Provider {
	return &Provider{
		Logger:            logger,
		Metrics:           metrics.NewCollector(),
		trustProxyHeaders: trustProxyHeaders,
	}
}

// Middleware creates an HTTP middleware for request observation. It assigns
// the correlation ID and client IP every later stage reads from the context.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		correlationID := contextutil.CorrelationIDFromRequest(r)
		clientIP := contextutil.ClientIPFromRequest(r, p.trustProxyHeaders)

		ctx := r.Context()
		ctx = contextutil.WithCorrelationID(ctx, correlationID)
		ctx = contextutil.WithClientIP(ctx, clientIP)

		logger := p.Logger.WithCorrelationID(correlationID)
		ctx = logging.ContextWithLogger(ctx, logger)

		wrapper := httputils.NewResponseWriter(w)
		wrapper.Header().Set(contextutil.CorrelationIDHeader, correlationID)

		logger.Info("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.UserAgent(),
		)

		r = r.WithContext(ctx)
		next.ServeHTTP(wrapper, r)

		duration := time.Since(startTime)
		p.Metrics.RecordRequest(r.Method, r.URL.Path, wrapper.StatusCode, duration)

		logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes_written", wrapper.BytesWritten,
		)
	})
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (p *Provider) MetricsHandler() http.Handler {
	return metrics.Handler()
}
