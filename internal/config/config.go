// Package config provides configuration types for the MediStore client.
//
// Configuration is file-based (medistore.yaml) with environment overrides.
// Every field has a default, so the client runs with no file at all.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Build environments. Each maps to a default API base URL.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var defaultBaseURLs = map[string]string{
	EnvDevelopment: "http://localhost:3000/v1",
	EnvStaging:     "https://staging.api.yourdomain.com/v1",
	EnvProduction:  "https://api.yourdomain.com/v1",
}

// Config is the top-level configuration.
type Config struct {
	// Environment selects the default API base URL.
	// Default: "production".
	Environment string `yaml:"environment" mapstructure:"environment" validate:"required,oneof=development staging production"`

	// API configures the backend connection.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Storage selects where session state and caches are persisted.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Log configures the slog handler.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Telemetry enables stdout exporters for spans and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Catalog configures the local read-through caches.
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
}

// APIConfig configures the HTTP client core.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://api.yourdomain.com/v1".
	// Default: derived from Environment.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds every request (e.g. "30s").
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"required,duration"`
	// UserAgent is sent on every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// StorageConfig configures the storage.Store backend.
type StorageConfig struct {
	// Backend is one of file, sqlite, redis, memory. Default: "file".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"required,oneof=file sqlite redis memory"`
	// Path is the file or database location for the file and sqlite backends.
	Path string `yaml:"path" mapstructure:"path"`
	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis storage backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	OpTimeout string `yaml:"op_timeout" mapstructure:"op_timeout" validate:"omitempty,duration"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: "info".
	Level string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// TelemetryConfig configures OpenTelemetry exporters.
type TelemetryConfig struct {
	// Trace writes spans to stderr.
	Trace bool `yaml:"trace" mapstructure:"trace"`
	// Metrics writes session meters to stderr on shutdown.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// CatalogConfig configures catalog caching.
type CatalogConfig struct {
	// CacheTTL is how long a cached page is served without a request.
	// Default: "5m".
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"required,duration"`
}

// SetDefaults fills every empty field.
func (c *Config) SetDefaults() {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURLs[c.Environment]
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "30s"
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "medistore-cli"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendFile:
			c.Storage.Path = filepath.Join(DefaultDataDir(), "state.json")
		case BackendSQLite:
			c.Storage.Path = filepath.Join(DefaultDataDir(), "medistore.db")
		}
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "medistore:kv:"
	}
	if c.Storage.Redis.OpTimeout == "" {
		c.Storage.Redis.OpTimeout = "2s"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Catalog.CacheTTL == "" {
		c.Catalog.CacheTTL = "5m"
	}
}

// DefaultDataDir is $HOME/.medistore, or .medistore when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".medistore"
	}
	return filepath.Join(home, ".medistore")
}

// DefaultBaseURL returns the API root for env, or "" for unknown values.
func DefaultBaseURL(env string) string {
	return defaultBaseURLs[env]
}

// APITimeout parses API.Timeout. Call after Validate.
func (c *Config) APITimeout() time.Duration {
	return mustDuration(c.API.Timeout)
}

// CacheTTL parses Catalog.CacheTTL. Call after Validate.
func (c *Config) CacheTTL() time.Duration {
	return mustDuration(c.Catalog.CacheTTL)
}

// RedisOpTimeout parses Storage.Redis.OpTimeout. Call after Validate.
func (c *Config) RedisOpTimeout() time.Duration {
	return mustDuration(c.Storage.Redis.OpTimeout)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
