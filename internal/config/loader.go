package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for medistore.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so the medistore binary itself
// is never picked up as a config file.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// Name/type without search paths makes ReadInConfig return
		// ConfigFileNotFoundError, which callers treat as "env only".
		viper.SetConfigName("medistore")
		viper.SetConfigType("yaml")
	}

	// MEDISTORE_API_BASE_URL overrides api.base_url.
	viper.SetEnvPrefix("MEDISTORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".medistore"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "medistore"))
		}
	} else {
		paths = append(paths, "/etc/medistore")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first medistore.yaml or .yml found in
// paths, or "".
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "medistore"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested keys so AutomaticEnv sees them during
// Unmarshal.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("environment")

	_ = viper.BindEnv("api.base_url")
	_ = viper.BindEnv("api.timeout")
	_ = viper.BindEnv("api.user_agent")

	_ = viper.BindEnv("storage.backend")
	_ = viper.BindEnv("storage.path")
	_ = viper.BindEnv("storage.redis.addr")
	_ = viper.BindEnv("storage.redis.password")
	_ = viper.BindEnv("storage.redis.db")
	_ = viper.BindEnv("storage.redis.prefix")
	_ = viper.BindEnv("storage.redis.op_timeout")

	_ = viper.BindEnv("log.level")

	_ = viper.BindEnv("telemetry.trace")
	_ = viper.BindEnv("telemetry.metrics")

	_ = viper.BindEnv("catalog.cache_ttl")
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, and validates the result.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads and defaults the configuration without validating it,
// so CLI flags can override fields first.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded configuration file, or ""
// when running from environment variables only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
