// internal/proxy/forwarder/forwarder.go
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"apigateway/internal/apierr"
	"apigateway/internal/auth"
	"apigateway/internal/contextutil"
	"apigateway/internal/httpclient"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"

	"golang.org/x/oauth2"
)

// Identity headers sent downstream
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserType    = "X-User-Type"
	HeaderUserRoles   = "X-User-Roles"
	HeaderUserScopes  = "X-User-Scopes"
	HeaderTenantID    = "X-Tenant-Id"
	HeaderDeviceID    = "X-Device-Id"
	HeaderGuestID     = "X-Guest-Id"
	HeaderFirebaseUID = "X-Firebase-Uid"
	HeaderLanguageID  = "X-Language-Id"
)

// maxCauseBody limits how much of a failed downstream body is kept for logs
const maxCauseBody = 512

// Resolver returns the base URL of a downstream service
type Resolver interface {
	Resolve(service string) (string, error)
}

// Request describes one downstream call
type Request struct {
	Service       string
	Path          string
	Method        string
	Body          []byte
	CorrelationID string
	Identity      *auth.Identity
}

// UpstreamServiceError is a failed downstream call. StatusCode is zero when
// no response was received.
type UpstreamServiceError struct {
	Service    string
	StatusCode int
	Cause      error
}

func (e *UpstreamServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream %s unreachable: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("upstream %s responded %d: %v", e.Service, e.StatusCode, e.Cause)
}

func (e *UpstreamServiceError) Unwrap() error {
	return e.Cause
}

// Forwarder issues downstream requests and translates their failures
type Forwarder struct {
	resolver Resolver
	client   *httpclient.Client
	tokens   oauth2.TokenSource
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// New creates a forwarder. tokens is optional; when set every call carries a
// service-to-service bearer token.
func New(resolver Resolver, client *httpclient.Client, tokens oauth2.TokenSource, logger *logging.Logger, metrics *metrics.Collector) *Forwarder {
	return &Forwarder{
		resolver: resolver,
		client:   client,
		tokens:   tokens,
		logger:   logger.WithModule("proxy.forwarder"),
		metrics:  metrics,
	}
}

// Forward sends req downstream and returns the raw 2xx payload. Failures are
// returned as *apierr.Error with the downstream cause attached for logging.
func (f *Forwarder) Forward(ctx context.Context, req Request) ([]byte, error) {
	payload, err := f.do(ctx, req)
	if err != nil {
		mapped := MapError(err)
		logging.FromContextOr(ctx, f.logger).Warn("Upstream call failed",
			"service", req.Service,
			"method", req.Method,
			"path", req.Path,
			"gateway_status", mapped.Status,
			logging.Err(err),
		)
		return nil, mapped
	}
	return payload, nil
}

func (f *Forwarder) do(ctx context.Context, req Request) ([]byte, error) {
	base, err := f.resolver.Resolve(req.Service)
	if err != nil {
		return nil, &UpstreamServiceError{Service: req.Service, Cause: err}
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = contextutil.GetCorrelationID(ctx)
	}

	opts := []httpclient.RequestOption{
		httpclient.WithHeader(contextutil.CorrelationIDHeader, correlationID),
		httpclient.WithJSONBody(req.Body),
	}
	opts = append(opts, f.identityHeaders(ctx, req.Identity)...)

	if f.tokens != nil {
		token, err := f.tokens.Token()
		if err != nil {
			return nil, &UpstreamServiceError{Service: req.Service, Cause: fmt.Errorf("obtaining service token: %w", err)}
		}
		opts = append(opts, httpclient.WithAuthToken(token.AccessToken))
	}

	start := time.Now()
	resp, err := f.client.Request(ctx, method, base+req.Path, opts...)
	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}
	f.metrics.RecordUpstreamRequest(method, req.Service, status, time.Since(start))

	if err != nil {
		return nil, &UpstreamServiceError{Service: req.Service, Cause: err}
	}
	if status < 200 || status >= 300 {
		return nil, &UpstreamServiceError{
			Service:    req.Service,
			StatusCode: status,
			Cause:      errors.New(truncate(resp.String(), maxCauseBody)),
		}
	}

	return resp.Body(), nil
}

// MapError translates a downstream failure: 4xx passes through with the same
// status, everything else including transport failures becomes 502
func MapError(err error) *apierr.Error {
	var upstream *UpstreamServiceError
	if !errors.As(err, &upstream) {
		return apierr.UpstreamUnavailable(err)
	}
	if upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
		return apierr.UpstreamRejected(upstream.StatusCode, upstream)
	}
	return apierr.UpstreamUnavailable(upstream)
}

// identityHeaders renders the canonical identity fields. Passthrough claims are never sent.
// Values carrying control characters are dropped since net/http refuses them.
func (f *Forwarder) identityHeaders(ctx context.Context, identity *auth.Identity) []httpclient.RequestOption {
	if identity == nil {
		return nil
	}
	values := []struct{ key, value string }{
		{HeaderUserID, identity.ID},
		{HeaderUserType, string(identity.UserType)},
		{HeaderUserRoles, strings.Join(identity.Roles, ",")},
		{HeaderUserScopes, strings.Join(identity.Scopes, ",")},
		{HeaderTenantID, identity.TenantID},
		{HeaderDeviceID, identity.DeviceID},
		{HeaderGuestID, identity.GuestID},
		{HeaderFirebaseUID, identity.FirebaseUID},
		{HeaderLanguageID, identity.LanguageID},
	}

	opts := make([]httpclient.RequestOption, 0, len(values))
	for _, h := range values {
		if hasControlChars(h.value) {
			logging.FromContextOr(ctx, f.logger).Warn("Dropping identity header with control characters", "header", h.key)
			continue
		}
		opts = append(opts, httpclient.WithHeader(h.key, h.value))
	}
	return opts
}

func hasControlChars(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
