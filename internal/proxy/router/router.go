// internal/proxy/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"apigateway/internal/apierr"
	"apigateway/internal/auth"
	"apigateway/internal/authz"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"

	"github.com/gorilla/mux"
)

// Policy declares who may reach a route
type Policy struct {
	// Public routes skip authentication and authorization entirely
	Public bool

	// AllowedUserTypes lists user type aliases admitted to the route.
	// Empty admits any authenticated caller.
	AllowedUserTypes []string
}

// Route is a gateway endpoint with its access policy
type Route struct {
	// Name is a unique identifier for the route
	Name string

	// Method is the HTTP method the route answers
	Method string

	// Path is the exact URL path
	Path string

	// Policy controls the interceptors placed in front of Handler
	Policy Policy

	// Handler runs only after every interceptor has let the request through
	Handler http.Handler
}

// Interceptor either passes the request on or short-circuits with a response
type Interceptor func(http.Handler) http.Handler

// Check reports whether a dependency is ready to serve traffic
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

// readyTimeout bounds all readiness checks together
const readyTimeout = 3 * time.Second

// Router dispatches requests to routes through their interceptor chain
type Router struct {
	*mux.Router
	authenticator auth.Authenticator
	gate          *authz.Gate
	checks        []Check
	logger        *logging.Logger
}

// New creates a router. Protected routes are authenticated by authenticator
// and then checked by gate.
func New(authenticator auth.Authenticator, gate *authz.Gate, logger *logging.Logger) *Router {
	r := &Router{
		Router:        mux.NewRouter(),
		authenticator: authenticator,
		gate:          gate,
		logger:        logger.WithModule("proxy.router"),
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logging.FromContextOr(req.Context(), r.logger).Debug("Request received for undefined route", "path", req.URL.Path)
		httputils.WriteError(w, req, r.logger, apierr.NotFound())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputils.WriteError(w, req, r.logger, apierr.MethodNotAllowed())
	})

	r.Register(Route{
		Name:    "health",
		Method:  http.MethodGet,
		Path:    "/health",
		Policy:  Policy{Public: true},
		Handler: http.HandlerFunc(r.health),
	})
	r.Register(Route{
		Name:    "ready",
		Method:  http.MethodGet,
		Path:    "/ready",
		Policy:  Policy{Public: true},
		Handler: http.HandlerFunc(r.ready),
	})

	return r
}

// AddReadinessCheck registers a dependency consulted by GET /ready
func (r *Router) AddReadinessCheck(name string, check func(ctx context.Context) error) {
	r.checks = append(r.checks, Check{Name: name, Check: check})
}

// Register composes the route's interceptor chain and mounts it.
// The chain is fixed here; nothing is added per request.
func (r *Router) Register(route Route) {
	r.logger.Debug("Setting up route",
		"name", route.Name,
		"method", route.Method,
		"path", route.Path,
		"public", route.Policy.Public,
		"allowed", route.Policy.AllowedUserTypes,
	)

	r.Path(route.Path).
		Methods(route.Method).
		Name(route.Name).
		Handler(Chain(route.Handler, r.interceptors(route.Policy)...))
}

// RegisterAll registers every route in order
func (r *Router) RegisterAll(routes []Route) {
	for _, route := range routes {
		r.Register(route)
	}
}

// interceptors returns the ordered interceptors for a policy: authentication
// strictly precedes authorization
func (r *Router) interceptors(policy Policy) []Interceptor {
	if policy.Public {
		return nil
	}
	return []Interceptor{
		r.authenticator.GetMiddleware,
		r.gate.Middleware(policy.AllowedUserTypes...),
	}
}

// Chain wraps h so that interceptors run in the given order before it
func Chain(h http.Handler, interceptors ...Interceptor) http.Handler {
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	_ = httputils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
	defer cancel()

	failures := map[string]string{}
	for _, c := range r.checks {
		if err := c.Check(ctx); err != nil {
			logging.FromContextOr(ctx, r.logger).Warn("Readiness check failed", "check", c.Name, logging.Err(err))
			failures[c.Name] = "unavailable"
		}
	}

	if len(failures) > 0 {
		_ = httputils.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failures,
		})
		return
	}
	_ = httputils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
