// internal/httpclient/client.go
package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultAgent   = "apigateway"
)

// Config holds outbound client settings
type Config struct {
	// Timeout bounds a whole request including reading the body
	Timeout time.Duration
	// RetryCount is the number of retries on transport failure; zero disables retries
	RetryCount int
	// TLSConfig overrides the default client TLS configuration
	TLSConfig *tls.Config
	// Transport replaces the default transport, mainly for tests
	Transport http.RoundTripper
}

// Client is a shared outbound HTTP client backed by resty
type Client struct {
	resty *resty.Client
}

// New creates a client from cfg
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", DefaultAgent)

	if cfg.Transport != nil {
		r.SetTransport(cfg.Transport)
	}
	if cfg.TLSConfig != nil {
		r.SetTLSClientConfig(cfg.TLSConfig)
	}

	return &Client{resty: r}
}

// HTTPClient exposes the underlying *http.Client for libraries that take one
func (c *Client) HTTPClient() *http.Client {
	return c.resty.GetClient()
}

// RequestOption customizes a single request
type RequestOption func(*resty.Request)

func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		if value != "" {
			r.SetHeader(key, value)
		}
	}
}

func WithAuthToken(token string) RequestOption {
	return func(r *resty.Request) {
		if token != "" {
			r.SetAuthToken(token)
		}
	}
}

// WithJSONBody sends raw as the request body with a JSON content type
func WithJSONBody(raw []byte) RequestOption {
	return func(r *resty.Request) {
		if raw != nil {
			r.SetHeader("Content-Type", "application/json")
			r.SetBody(raw)
		}
	}
}

// Request issues method against url. A nil error only means a response was
// received; callers inspect the status themselves.
func (c *Client) Request(ctx context.Context, method, url string, opts ...RequestOption) (*resty.Response, error) {
	request := c.resty.R().SetContext(ctx)

	for _, opt := range opts {
		opt(request)
	}

	return request.Execute(method, url)
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return c.Request(ctx, http.MethodGet, url, opts...)
}
