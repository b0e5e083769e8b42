// Package config defines the configuration structure for the movie collection
// service. Configuration is loaded once at process start and is immutable
// thereafter. Values come from the OS environment, optionally pre-populated
// from a .env file. Environment variables always win over the file.
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"moviesvc/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod test"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Auth     AuthConfig
	Quota    QuotaConfig
	Catalog  CatalogConfig
	Store    StoreConfig
	Accounts AccountsConfig
	Metrics  MetricsConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"MOVIES_PORT" default:"3000"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"0s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// AuthConfig holds the bearer token verification settings. Tokens are issued
// elsewhere; this service only verifies them.
type AuthConfig struct {
	Secret SecretString `envconfig:"JWT_SECRET" validate:"required"`
	Issuer string       `envconfig:"JWT_ISSUER" default:"https://www.netguru.com/" validate:"required"`
}

// QuotaConfig holds the monthly allowance per tier.
type QuotaConfig struct {
	BasicMonthlyLimit int `envconfig:"MOVIES_PER_MONTH_BASIC" default:"5" validate:"min=0"`
}

// CatalogConfig holds the OMDb lookup settings.
type CatalogConfig struct {
	APIKey  SecretString `envconfig:"OMDB_API_KEY" validate:"required"`
	BaseURL string       `envconfig:"OMDB_BASE_URL" default:"https://omdbapi.com" validate:"required,url"`
	// Zero means no client timeout; the transport defaults apply.
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"0s"`
	// Filled from BuildInfo by LoadConfig.
	UserAgent string `ignored:"true"`
}

// StoreConfig selects and tunes the account store.
type StoreConfig struct {
	Driver       string       `envconfig:"STORE_DRIVER" default:"postgres" validate:"oneof=postgres sqlite memory"`
	URL          SecretString `envconfig:"DATABASE_URL" validate:"required_if=Driver postgres"`
	SQLitePath   string       `envconfig:"SQLITE_PATH" default:"movies.db"`
	MaxConns     int          `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	SeedDefaults bool         `envconfig:"SEED_DEFAULT_ACCOUNTS" default:"true"`
}

// AccountsConfig controls account lifecycle behavior.
type AccountsConfig struct {
	// AutoProvision creates an account on first use for a verified identity
	// that has none. When false such requests get 404.
	AutoProvision bool `envconfig:"AUTO_PROVISION_ACCOUNTS" default:"false"`
}

// MetricsConfig holds CloudWatch publishing settings.
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Namespace string `envconfig:"METRIC_NAMESPACE" default:"MoviesService"`
	Region    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
