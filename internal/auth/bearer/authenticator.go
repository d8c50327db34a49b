// internal/auth/bearer/authenticator.go
package bearer

import (
	"context"
	"net/http"

	"apigateway/internal/apierr"
	"apigateway/internal/audit"
	"apigateway/internal/auth"
	"apigateway/internal/contextutil"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"
)

// TokenVerifier verifies a raw token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (map[string]any, error)
}

// Authenticator implements Bearer token authentication
type Authenticator struct {
	verifier TokenVerifier
	emitter  *audit.Emitter
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// New creates a new Bearer authenticator
func New(verifier TokenVerifier, emitter *audit.Emitter, logger *logging.Logger, metrics *metrics.Collector) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		emitter:  emitter,
		logger:   logger.WithModule("auth.bearer"),
		metrics:  metrics,
	}
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "bearer"
}

// GetMiddleware returns an http.Handler middleware that performs Bearer authentication.
// On failure it audits the attempt and responds 401 without calling next.
func (a *Authenticator) GetMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContextOr(ctx, a.logger)

		token, ok := ExtractToken(r.Header.Get("Authorization"))
		if !ok {
			logger.Debug("Bearer token missing or malformed")
			a.metrics.RecordAuthentication(false, audit.ReasonMissingToken)
			a.emitter.Emit(ctx, failureEvent(r, audit.ReasonMissingToken))
			httputils.WriteError(w, r, a.logger, apierr.MissingToken())
			return
		}

		claims, err := a.verifier.Verify(ctx, token)
		if err != nil {
			a.metrics.RecordAuthentication(false, audit.ReasonInvalidToken)
			a.emitter.Emit(ctx, failureEvent(r, audit.ReasonInvalidToken))
			httputils.WriteError(w, r, a.logger, apierr.InvalidToken(err))
			return
		}

		identity := auth.ProjectIdentity(claims)
		a.metrics.RecordAuthentication(true, "")
		logger.Debug("Bearer token valid", "subject", identity.Subject, "user_type", identity.UserType)

		ctx = auth.ContextWithIdentity(ctx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// failureEvent builds the audit record for a rejected request. Nothing from
// an unverified token is trusted, so subject and tenant stay empty.
func failureEvent(r *http.Request, reason string) audit.Event {
	ctx := r.Context()
	ip := contextutil.GetClientIP(ctx)
	if ip == "" {
		ip = contextutil.ClientIPFromRequest(r, false)
	}
	return audit.Event{
		Type:          audit.TypeAuthFailure,
		CorrelationID: contextutil.GetCorrelationID(ctx),
		IP:            ip,
		Metadata: map[string]string{
			"reason": reason,
			"path":   r.URL.Path,
			"method": r.Method,
		},
	}
}
