// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Store selects the record store backend.
	Store string `koanf:"store" validate:"oneof=memory postgres"`

	// DatabaseURL is the Postgres connection string; required for the postgres store.
	DatabaseURL string `koanf:"database_url" validate:"required_if=Store postgres"`

	// DBMaxConns caps the Postgres pool size.
	DBMaxConns int `koanf:"db_max_conns" validate:"gt=0"`

	// MetadataURL is the base URL of the OMDb-compatible metadata provider.
	MetadataURL string `koanf:"metadata_url" validate:"required,url"`

	// MetadataAPIKey is sent as the apikey query parameter.
	MetadataAPIKey string `koanf:"metadata_api_key"`

	// MetadataTimeoutMS bounds a single metadata lookup.
	MetadataTimeoutMS int `koanf:"metadata_timeout_ms" validate:"gt=0"`

	// MetadataRPS and MetadataBurst bound outbound lookups.
	MetadataRPS   float64 `koanf:"metadata_rps" validate:"gt=0"`
	MetadataBurst int     `koanf:"metadata_burst" validate:"gt=0"`

	// BreakerFailures consecutive failures open the metadata circuit breaker,
	// which stays open for BreakerTimeoutMS.
	BreakerFailures  int `koanf:"breaker_failures" validate:"gt=0"`
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms" validate:"gt=0"`

	// HTTPRateLimit caps requests per minute from one client IP; 0 disables it.
	HTTPRateLimit int `koanf:"http_rate_limit" validate:"gte=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Store:             StoreMemory,
		DBMaxConns:        10,
		MetadataURL:       "https://www.omdbapi.com/",
		MetadataTimeoutMS: 5000,
		MetadataRPS:       10,
		MetadataBurst:     5,
		BreakerFailures:   5,
		BreakerTimeoutMS:  30_000,
		HTTPRateLimit:     0,
	}
}

// MetadataTimeout returns MetadataTimeoutMS as a duration.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.MetadataTimeoutMS) * time.Millisecond
}

// BreakerTimeout returns BreakerTimeoutMS as a duration.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}
