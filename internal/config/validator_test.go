package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{Storage: StorageConfig{Backend: BackendMemory}}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown environment",
			mutate: func(c *Config) { c.Environment = "qa" },
			want:   "Config.Environment must be one of",
		},
		{
			name:   "base url",
			mutate: func(c *Config) { c.API.BaseURL = "not a url" },
			want:   "Config.API.BaseURL must be a valid URL",
		},
		{
			name:   "timeout not a duration",
			mutate: func(c *Config) { c.API.Timeout = "thirty" },
			want:   "Config.API.Timeout must be a positive duration",
		},
		{
			name:   "negative ttl",
			mutate: func(c *Config) { c.Catalog.CacheTTL = "-1m" },
			want:   "Config.Catalog.CacheTTL must be a positive duration",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "etcd" },
			want:   "Config.Storage.Backend must be one of",
		},
		{
			name:   "file without path",
			mutate: func(c *Config) { c.Storage.Backend = BackendFile; c.Storage.Path = "" },
			want:   "storage.path is required for the file backend",
		},
		{
			name:   "redis without addr",
			mutate: func(c *Config) { c.Storage.Backend = BackendRedis },
			want:   "storage.redis.addr is required",
		},
		{
			name: "redis addr without port",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendRedis
				c.Storage.Redis.Addr = "localhost"
			},
			want: "storage.redis.addr must be host:port",
		},
		{
			name:   "negative redis db",
			mutate: func(c *Config) { c.Storage.Redis.DB = -1 },
			want:   "Config.Storage.Redis.DB must be at least 0",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidate_RedisBackend(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Storage.Backend = BackendRedis
	cfg.Storage.Redis.Addr = "127.0.0.1:6379"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if cfg.RedisOpTimeout().Seconds() != 2 {
		t.Errorf("RedisOpTimeout() = %v", cfg.RedisOpTimeout())
	}
}
