// internal/auth/jwks/cache.go
package jwks

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"apigateway/internal/httpclient"
	"apigateway/internal/observability/logging"
	"apigateway/internal/observability/metrics"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound is returned when a key id is absent after a fresh fetch
var ErrKeyNotFound = errors.New("signing key not found")

const (
	DefaultTTL             = 5 * time.Minute
	DefaultRefreshCooldown = 30 * time.Second
	DefaultFetchTimeout    = 5 * time.Second

	refreshKey = "jwks"
)

// Config holds key set cache configuration
type Config struct {
	// URL is the key set location
	URL string
	// TTL is how long a fetched set stays valid
	TTL time.Duration
	// RefreshCooldown is the minimum age of the cached set before an unknown
	// key id triggers another fetch
	RefreshCooldown time.Duration
	// FetchTimeout bounds one fetch, independently of the caller's context
	FetchTimeout time.Duration
	// Client performs the fetch
	Client *httpclient.Client
	// Clock returns the current time; defaults to time.Now
	Clock func() time.Time
}

// keySet is an immutable snapshot of a fetched key set
type keySet struct {
	byID map[string]crypto.PublicKey
	all  []crypto.PublicKey
}

// Cache holds the remote signing key set shared by all verifications.
// Concurrent refreshes are coalesced into one in-flight fetch.
type Cache struct {
	url          string
	ttl          time.Duration
	cooldown     time.Duration
	fetchTimeout time.Duration
	client       *httpclient.Client
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.Collector

	mu        sync.RWMutex
	keys      *keySet
	fetchedAt time.Time

	group singleflight.Group
}

// New creates a key set cache. No fetch happens until the first lookup.
func New(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Cache, error) {
	u, err := url.Parse(config.URL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid key set URL %q", config.URL)
	}

	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.RefreshCooldown <= 0 {
		config.RefreshCooldown = DefaultRefreshCooldown
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.Client == nil {
		config.Client = httpclient.New(httpclient.Config{Timeout: config.FetchTimeout})
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Cache{
		url:          config.URL,
		ttl:          config.TTL,
		cooldown:     config.RefreshCooldown,
		fetchTimeout: config.FetchTimeout,
		client:       config.Client,
		now:          config.Clock,
		logger:       logger.WithModule("auth.jwks").With("url", logging.RedactStringURL(config.URL)),
		metrics:      metrics,
	}, nil
}

// GetKey returns the public key for kid, fetching the key set when the cached
// copy has expired or does not contain kid.
func (c *Cache) GetKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	c.mu.RLock()
	keys, fetchedAt := c.keys, c.fetchedAt
	c.mu.RUnlock()

	now := c.now()
	fresh := keys != nil && now.Before(fetchedAt.Add(c.ttl))
	if fresh {
		if key, ok := keys.byID[kid]; ok {
			return key, nil
		}
		// An unknown kid only forces a fetch once the cached set is old enough
		if now.Sub(fetchedAt) < c.cooldown {
			return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
		}
	}

	keys, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}

	key, ok := keys.byID[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// Keys returns every key in the current set, for tokens that carry no kid
func (c *Cache) Keys(ctx context.Context) ([]crypto.PublicKey, error) {
	c.mu.RLock()
	keys, fetchedAt := c.keys, c.fetchedAt
	c.mu.RUnlock()

	if keys != nil && c.now().Before(fetchedAt.Add(c.ttl)) {
		return keys.all, nil
	}

	keys, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return keys.all, nil
}

// refresh fetches the key set once for all concurrent callers. The fetch runs
// detached from ctx so an abandoned caller does not fail the others waiting on it.
func (c *Cache) refresh(ctx context.Context) (*keySet, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		keys, err := c.fetch(fetchCtx)
		if err != nil {
			c.metrics.RecordKeySetRefresh(false)
			c.logger.Warn("Key set fetch failed", logging.Err(err))
			return nil, err
		}

		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = c.now()
		c.mu.Unlock()

		c.metrics.RecordKeySetRefresh(true)
		c.logger.Debug("Key set refreshed", "keys", len(keys.all))
		return keys, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for key set: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keySet), nil
	}
}

func (c *Cache) fetch(ctx context.Context) (*keySet, error) {
	resp, err := c.client.Get(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("fetching key set: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching key set: unexpected status %d", resp.StatusCode())
	}
	return c.parse(resp.Body())
}

// parse decodes a JWKS document. Keys that cannot be used for signature
// verification are skipped rather than failing the whole set.
func (c *Cache) parse(body []byte) (*keySet, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding key set: %w", err)
	}

	set := &keySet{byID: make(map[string]crypto.PublicKey, len(doc.Keys))}
	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			c.logger.Warn("Skipping unparseable key", logging.Err(err))
			continue
		}
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		if !jwk.IsPublic() {
			jwk = jwk.Public()
		}
		// Symmetric keys have no public half
		if !jwk.Valid() || !jwk.IsPublic() {
			c.logger.Warn("Skipping non-public key", "kid", jwk.KeyID)
			continue
		}
		set.all = append(set.all, jwk.Key)
		if jwk.KeyID != "" {
			set.byID[jwk.KeyID] = jwk.Key
		}
	}

	if len(set.all) == 0 {
		return nil, errors.New("key set contains no usable signing keys")
	}
	return set, nil
}
