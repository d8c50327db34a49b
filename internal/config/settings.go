// internal/config/settings.go
package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// Duration type for settings parsed with time.ParseDuration
	Duration SettingType = "duration"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Env is the environment variable name for the setting, without prefix
	Env string
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Required returns the settings that must be non-empty
func (sl SettingList) Required() SettingList {
	var out SettingList
	for _, s := range sl {
		if s.Required {
			out = append(out, s)
		}
	}
	return out
}

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the gateway listens",
		Type:    String,
		Default: ":8000",
		Env:     "SERVER_ADDR",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
		Env:     "METRICS_ADDR",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    Duration,
		Default: "30s",
		Env:     "SHUTDOWN_TIMEOUT",
	},
	{
		Name:    "TRUST_PROXY_HEADERS",
		Short:   "Take the client IP from X-Forwarded-For",
		Type:    Bool,
		Default: false,
		Env:     "TRUST_PROXY_HEADERS",
	},
	{
		Name:    "REQUEST_BODY_LIMIT",
		Short:   "Maximum accepted request body size in bytes",
		Type:    Int,
		Default: 8 * 1024,
		Env:     "REQUEST_BODY_LIMIT",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Enable TLS for the gateway listener",
		Type:    Bool,
		Default: false,
		Env:     "TLS_ENABLED",
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CERT_PATH",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
		Env:     "TLS_KEY_PATH",
	},

	// Authentication
	{
		Name:    "AUTH_JWKS_URL",
		Short:   "URL of the signing key set; discovered from the issuer when empty",
		Type:    String,
		Default: "",
		Env:     "AUTH_JWKS_URL",
	},
	{
		Name:    "AUTH_CACHE_TTL_SECONDS",
		Short:   "Lifetime of a fetched key set in seconds",
		Type:    Int,
		Default: 300,
		Env:     "AUTH_CACHE_TTL_SECONDS",
	},
	{
		Name:    "AUTH_JWKS_REFRESH_COOLDOWN",
		Short:   "Minimum interval between refreshes triggered by an unknown key id",
		Type:    Duration,
		Default: "30s",
		Env:     "AUTH_JWKS_REFRESH_COOLDOWN",
	},
	{
		Name:    "AUTH_JWKS_FETCH_TIMEOUT",
		Short:   "Timeout for fetching the key set",
		Type:    Duration,
		Default: "5s",
		Env:     "AUTH_JWKS_FETCH_TIMEOUT",
	},
	{
		Name:     "AUTH_ISSUER",
		Short:    "Expected token issuer",
		Type:     String,
		Default:  "",
		Env:      "AUTH_ISSUER",
		Required: true,
	},
	{
		Name:     "AUTH_AUDIENCE",
		Short:    "Expected token audience",
		Type:     String,
		Default:  "",
		Env:      "AUTH_AUDIENCE",
		Required: true,
	},
	{
		Name:    "AUTH_VERIFY_TIMEOUT",
		Short:   "Timeout for verifying a token, including key lookups",
		Type:    Duration,
		Default: "5s",
		Env:     "AUTH_VERIFY_TIMEOUT",
	},
	{
		Name:    "AUTH_CLOCK_SKEW",
		Short:   "Leeway applied to exp and nbf",
		Type:    Duration,
		Default: "30s",
		Env:     "AUTH_CLOCK_SKEW",
	},
	{
		Name:    "AUTH_REQUIRE_EXPIRY",
		Short:   "Reject tokens without an exp claim",
		Type:    Bool,
		Default: true,
		Env:     "AUTH_REQUIRE_EXPIRY",
	},

	// Upstream settings
	{
		Name:    "SERVICE_URLS",
		Short:   "Downstream base URLs as name=url entries",
		Type:    StringSlice,
		Default: []string{},
		Env:     "SERVICE_URLS",
	},
	{
		Name:    "UPSTREAM_TIMEOUT",
		Short:   "Timeout for downstream requests",
		Type:    Duration,
		Default: "10s",
		Env:     "UPSTREAM_TIMEOUT",
	},
	{
		Name:    "UPSTREAM_CA_PATH",
		Short:   "Path to a CA bundle trusted for downstream TLS",
		Type:    String,
		Default: "",
		Env:     "UPSTREAM_CA_PATH",
	},
	{
		Name:    "UPSTREAM_AUTH_TOKEN_URL",
		Short:   "Token endpoint for service-to-service client credentials",
		Type:    String,
		Default: "",
		Env:     "UPSTREAM_AUTH_TOKEN_URL",
	},
	{
		Name:    "UPSTREAM_AUTH_CLIENT_ID",
		Short:   "Client ID for service-to-service credentials",
		Type:    String,
		Default: "",
		Env:     "UPSTREAM_AUTH_CLIENT_ID",
	},
	{
		Name:    "UPSTREAM_AUTH_CLIENT_SECRET",
		Short:   "Client secret for service-to-service credentials",
		Type:    String,
		Default: "",
		Env:     "UPSTREAM_AUTH_CLIENT_SECRET",
	},
	{
		Name:    "UPSTREAM_AUTH_SCOPES",
		Short:   "Scopes requested for service-to-service credentials",
		Type:    StringSlice,
		Default: []string{},
		Env:     "UPSTREAM_AUTH_SCOPES",
	},

	// Audit
	{
		Name:    "AUDIT_SINK",
		Short:   "Audit event sink (log, redis, none)",
		Type:    String,
		Default: "log",
		Env:     "AUDIT_SINK",
	},
	{
		Name:    "AUDIT_REDIS_URL",
		Short:   "Redis URL for the audit stream",
		Type:    String,
		Default: "",
		Env:     "AUDIT_REDIS_URL",
	},
	{
		Name:    "AUDIT_REDIS_STREAM",
		Short:   "Redis stream receiving audit events",
		Type:    String,
		Default: "apigateway:audit",
		Env:     "AUDIT_REDIS_STREAM",
	},
	{
		Name:    "AUDIT_PUBLISH_TIMEOUT",
		Short:   "Timeout for publishing one audit event",
		Type:    Duration,
		Default: "2s",
		Env:     "AUDIT_PUBLISH_TIMEOUT",
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level",
		Type:    String,
		Default: "info",
		Env:     "LOG_LEVEL",
	},
	{
		Name:    "LOG_FORMAT",
		Short:   "Logging format (json, text, console)",
		Type:    String,
		Default: "json",
		Env:     "LOG_FORMAT",
	},
}
