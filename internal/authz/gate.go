// internal/authz/gate.go
package authz

import (
	"net/http"

	"apigateway/internal/apierr"
	"apigateway/internal/audit"
	"apigateway/internal/auth"
	"apigateway/internal/contextutil"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"
)

// Gate enforces user type policies as HTTP middleware
type Gate struct {
	emitter *audit.Emitter
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewGate creates a gate. Denials are audited through emitter.
func NewGate(emitter *audit.Emitter, logger *logging.Logger, metrics *metrics.Collector) *Gate {
	return &Gate{
		emitter: emitter,
		logger:  logger.WithModule("authz"),
		metrics: metrics,
	}
}

// Middleware creates an HTTP middleware admitting only the allowed user types
func (g *Gate) Middleware(allowed ...string) func(http.Handler) http.Handler {
	policy := Authorize(allowed)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := auth.IdentityFromContext(ctx)

			if err := policy(identity); err != nil {
				userType := ""
				if identity != nil {
					userType = string(identity.UserType)
				}
				g.metrics.RecordAuthorization(userType, false)
				logging.FromContextOr(ctx, g.logger).Info("Access denied",
					"user_type", userType,
					"allowed", allowed,
					"path", r.URL.Path,
				)

				if apierr.HasCode(err, apierr.CodeForbidden) {
					g.emitter.Emit(ctx, deniedEvent(r, identity))
				}
				httputils.WriteError(w, r, g.logger, err)
				return
			}

			g.metrics.RecordAuthorization(string(identity.UserType), true)
			next.ServeHTTP(w, r)
		})
	}
}

func deniedEvent(r *http.Request, identity *auth.Identity) audit.Event {
	ctx := r.Context()
	return audit.Event{
		Type:          audit.TypeAccessDenied,
		CorrelationID: contextutil.GetCorrelationID(ctx),
		Subject:       identity.Subject,
		IP:            contextutil.GetClientIP(ctx),
		TenantID:      identity.TenantID,
		Metadata: map[string]string{
			"reason":   audit.ReasonForbidden,
			"path":     r.URL.Path,
			"method":   r.Method,
			"userType": string(identity.UserType),
		},
	}
}
