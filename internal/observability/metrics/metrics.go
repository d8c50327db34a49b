package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelStatus  = "status"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelReason  = "reason"
	LabelSuccess = "success"
	LabelService = "service"
	LabelResult  = "result"
	LabelType    = "type"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apigateway_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// AuthenticationTotal counts bearer authentication attempts by outcome
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_authentication_total",
			Help: "Total number of authentication attempts",
		},
		[]string{LabelSuccess, LabelReason},
	)

	// AuthorizationTotal counts user type gate decisions
	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_authorization_total",
			Help: "Total number of authorization checks",
		},
		[]string{LabelType, LabelSuccess},
	)

	// KeySetRefreshTotal counts signing key set fetches
	KeySetRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_jwks_refresh_total",
			Help: "Total number of signing key set fetches",
		},
		[]string{LabelResult},
	)

	// AuditPublishTotal counts audit event publishes by event type and outcome
	AuditPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_audit_publish_total",
			Help: "Total number of audit events handed to the publisher",
		},
		[]string{LabelType, LabelResult},
	)

	// UpstreamRequestTotal counts requests to downstream services
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigateway_upstream_requests_total",
			Help: "Total number of requests to upstream services",
		},
		[]string{LabelMethod, LabelService, LabelStatus},
	)

	// UpstreamRequestDuration tracks the duration of downstream requests
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apigateway_upstream_request_duration_seconds",
			Help:    "Duration of requests to upstream services in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelService},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthentication records an authentication attempt; reason is empty on success
func (c *Collector) RecordAuthentication(success bool, reason string) {
	AuthenticationTotal.WithLabelValues(strconv.FormatBool(success), reason).Inc()
}

// RecordAuthorization records a user type gate decision
func (c *Collector) RecordAuthorization(userType string, success bool) {
	AuthorizationTotal.WithLabelValues(userType, strconv.FormatBool(success)).Inc()
}

// RecordKeySetRefresh records a key set fetch
func (c *Collector) RecordKeySetRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	KeySetRefreshTotal.WithLabelValues(result).Inc()
}

// RecordAuditPublish records an audit publish attempt
func (c *Collector) RecordAuditPublish(eventType string, success bool) {
	result := "published"
	if !success {
		result = "failed"
	}
	AuditPublishTotal.WithLabelValues(eventType, result).Inc()
}

// RecordUpstreamRequest records a request to a downstream service.
// A zero status means no response was obtained.
func (c *Collector) RecordUpstreamRequest(method, service string, status int, duration time.Duration) {
	UpstreamRequestTotal.WithLabelValues(method, service, strconv.Itoa(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(method, service).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
