// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting when read from the environment
const EnvPrefix = "APIGW"

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	Settings.PopulateViperDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Load from config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// It's okay if the config file doesn't exist, but other errors should be reported
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for _, s := range Settings.Required() {
		if strings.TrimSpace(v.GetString(s.Name)) == "" {
			return nil, fmt.Errorf("%s is required (%s_%s)", strings.ToLower(s.Short), EnvPrefix, s.Env)
		}
	}

	config := &Config{}
	var err error

	// Populate server configuration
	config.Server.Address = v.GetString("SERVER_ADDR")
	if config.Server.ShutdownTimeout, err = duration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}
	config.Server.TrustProxyHeaders = v.GetBool("TRUST_PROXY_HEADERS")
	config.Server.RequestBodyLimit = v.GetInt64("REQUEST_BODY_LIMIT")

	// Populate metrics configuration
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	// Populate TLS configuration
	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")

	// Populate authentication configuration
	config.Auth.JWKSURL = v.GetString("AUTH_JWKS_URL")
	config.Auth.CacheTTL = time.Duration(v.GetInt("AUTH_CACHE_TTL_SECONDS")) * time.Second
	if config.Auth.RefreshCooldown, err = duration(v, "AUTH_JWKS_REFRESH_COOLDOWN"); err != nil {
		return nil, err
	}
	if config.Auth.FetchTimeout, err = duration(v, "AUTH_JWKS_FETCH_TIMEOUT"); err != nil {
		return nil, err
	}
	config.Auth.Issuer = v.GetString("AUTH_ISSUER")
	config.Auth.Audience = v.GetString("AUTH_AUDIENCE")
	if config.Auth.VerifyTimeout, err = duration(v, "AUTH_VERIFY_TIMEOUT"); err != nil {
		return nil, err
	}
	if config.Auth.ClockSkew, err = duration(v, "AUTH_CLOCK_SKEW"); err != nil {
		return nil, err
	}
	config.Auth.RequireExpiry = v.GetBool("AUTH_REQUIRE_EXPIRY")

	// Populate upstream configuration
	services, err := ParseServiceURLs(stringList(v, "SERVICE_URLS"))
	if err != nil {
		return nil, err
	}
	config.Upstream.Services = services
	if config.Upstream.Timeout, err = duration(v, "UPSTREAM_TIMEOUT"); err != nil {
		return nil, err
	}
	config.Upstream.CAPath = v.GetString("UPSTREAM_CA_PATH")
	config.Upstream.Auth.TokenURL = v.GetString("UPSTREAM_AUTH_TOKEN_URL")
	config.Upstream.Auth.ClientID = v.GetString("UPSTREAM_AUTH_CLIENT_ID")
	config.Upstream.Auth.ClientSecret = v.GetString("UPSTREAM_AUTH_CLIENT_SECRET")
	config.Upstream.Auth.Scopes = stringList(v, "UPSTREAM_AUTH_SCOPES")

	// Populate audit configuration
	config.Audit.Sink = strings.ToLower(v.GetString("AUDIT_SINK"))
	config.Audit.RedisURL = v.GetString("AUDIT_REDIS_URL")
	config.Audit.RedisStream = v.GetString("AUDIT_REDIS_STREAM")
	if config.Audit.PublishTimeout, err = duration(v, "AUDIT_PUBLISH_TIMEOUT"); err != nil {
		return nil, err
	}

	// Populate observability configuration
	config.Observability.LogLevel = v.GetString("LOG_LEVEL")
	config.Observability.LogFormat = v.GetString("LOG_FORMAT")

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// duration parses a duration setting, naming the setting on failure
func duration(v *viper.Viper, name string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToLower(name), err)
	}
	return d, nil
}

// stringList reads a list setting; a plain string from the environment is
// split on commas and whitespace
func stringList(v *viper.Viper, name string) []string {
	if raw, ok := v.Get(name).(string); ok {
		return strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}
	return v.GetStringSlice(name)
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}

		// Check if certificate and key files exist
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	if err := validateAuthConfig(cfg); err != nil {
		return err
	}

	if err := validateUpstreamConfig(cfg); err != nil {
		return err
	}

	return validateAuditConfig(cfg)
}

// validateAuthConfig validates token verification configuration
func validateAuthConfig(cfg *Config) error {
	if cfg.Auth.CacheTTL <= 0 {
		return fmt.Errorf("key set cache TTL must be positive")
	}
	if cfg.Auth.FetchTimeout <= 0 || cfg.Auth.VerifyTimeout <= 0 {
		return fmt.Errorf("key set fetch and token verification timeouts must be positive")
	}
	if cfg.Auth.ClockSkew < 0 {
		return fmt.Errorf("clock skew cannot be negative")
	}
	return nil
}

// validateUpstreamConfig validates downstream configuration
func validateUpstreamConfig(cfg *Config) error {
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if cfg.Upstream.CAPath != "" {
		if _, err := os.Stat(cfg.Upstream.CAPath); os.IsNotExist(err) {
			return fmt.Errorf("upstream CA file not found: %s", cfg.Upstream.CAPath)
		}
	}
	if cfg.Upstream.Auth.TokenURL != "" && cfg.Upstream.Auth.ClientID == "" {
		return fmt.Errorf("upstream client ID is required when a token URL is set")
	}
	if cfg.Server.RequestBodyLimit <= 0 {
		return fmt.Errorf("request body limit must be positive")
	}
	return nil
}

// validateAuditConfig validates audit sink configuration
func validateAuditConfig(cfg *Config) error {
	switch cfg.Audit.Sink {
	case "log", "none":
	case "redis":
		if cfg.Audit.RedisURL == "" {
			return fmt.Errorf("audit redis URL is required when the audit sink is redis")
		}
		if cfg.Audit.RedisStream == "" {
			return fmt.Errorf("audit redis stream is required when the audit sink is redis")
		}
	default:
		return fmt.Errorf("invalid audit sink: '%s'", cfg.Audit.Sink)
	}
	return nil
}
