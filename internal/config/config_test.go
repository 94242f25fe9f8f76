package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	if cfg.Environment != EnvProduction {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.API.BaseURL != "https://api.yourdomain.com/v1" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.APITimeout() != 30*time.Second {
		t.Errorf("APITimeout() = %v, want 30s", cfg.APITimeout())
	}
	if cfg.Storage.Backend != BackendFile || !strings.HasSuffix(cfg.Storage.Path, "state.json") {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config fails validation: %v", err)
	}
}

func TestConfig_SetDefaults_EnvironmentSelectsBaseURL(t *testing.T) {
	t.Parallel()

	cfg := Config{Environment: EnvDevelopment}
	cfg.SetDefaults()

	if cfg.API.BaseURL != DefaultBaseURL(EnvDevelopment) {
		t.Errorf("BaseURL = %q, want development default", cfg.API.BaseURL)
	}
}

func TestConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		API:     APIConfig{BaseURL: "https://pharmacy.example/api", Timeout: "5s"},
		Storage: StorageConfig{Backend: BackendSQLite, Path: "/tmp/x.db"},
		Log:     LogConfig{Level: "debug"},
	}
	cfg.SetDefaults()

	if cfg.API.BaseURL != "https://pharmacy.example/api" {
		t.Errorf("BaseURL overwritten: %q", cfg.API.BaseURL)
	}
	if cfg.APITimeout() != 5*time.Second {
		t.Errorf("APITimeout() = %v", cfg.APITimeout())
	}
	if cfg.Storage.Path != "/tmp/x.db" || cfg.Log.Level != "debug" {
		t.Errorf("config overwritten: %+v", cfg)
	}
}

func TestConfig_SetDefaults_SQLitePath(t *testing.T) {
	t.Parallel()

	cfg := Config{Storage: StorageConfig{Backend: BackendSQLite}}
	cfg.SetDefaults()

	if filepath.Base(cfg.Storage.Path) != "medistore.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()

	if got := findConfigFileInPaths([]string{t.TempDir()}); got != "" {
		t.Errorf("findConfigFileInPaths(empty dir) = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "medistore.yml")
	_ = os.WriteFile(cfgPath, []byte("log:\n  level: debug\n"), 0644)

	if got := findConfigFileInPaths([]string{dir}); got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "medistore"), []byte("\x7fELF binary"), 0755)

	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths matched binary = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "medistore.yaml")
	_ = os.WriteFile(yamlPath, []byte("log:\n  level: info\n"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "medistore.yml"), []byte("log:\n  level: debug\n"), 0644)

	if got := findConfigFileInPaths([]string{dir}); got != yamlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q (.yaml preferred)", got, yamlPath)
	}
}

// Not parallel: uses the global viper instance and process environment.
func TestLoadConfig_FileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "medistore.yaml")
	yaml := "environment: staging\nstorage:\n  backend: memory\ncatalog:\n  cache_ttl: 90s\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEDISTORE_LOG_LEVEL", "debug")
	t.Setenv("MEDISTORE_API_TIMEOUT", "12s")

	InitViper(path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if ConfigFileUsed() != path {
		t.Errorf("ConfigFileUsed() = %q", ConfigFileUsed())
	}
	if cfg.API.BaseURL != DefaultBaseURL(EnvStaging) {
		t.Errorf("BaseURL = %q, want staging default", cfg.API.BaseURL)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want env override", cfg.Log.Level)
	}
	if cfg.APITimeout() != 12*time.Second {
		t.Errorf("APITimeout() = %v, want env override", cfg.APITimeout())
	}
	if cfg.CacheTTL() != 90*time.Second {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "medistore.yaml")
	_ = os.WriteFile(path, []byte("log:\n  level: verbose\n"), 0600)

	InitViper(path)
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "Log.Level must be one of") {
		t.Errorf("LoadConfig() error = %v, want log level message", err)
	}
}
