package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/adapter/outbound/memory"
	"github.com/medistore/medistore/internal/adapter/outbound/rediskv"
	"github.com/medistore/medistore/internal/adapter/outbound/sqlite"
	"github.com/medistore/medistore/internal/adapter/outbound/state"
	"github.com/medistore/medistore/internal/config"
	"github.com/medistore/medistore/internal/ctxkey"
	"github.com/medistore/medistore/internal/domain/notify"
	"github.com/medistore/medistore/internal/domain/storage"
	"github.com/medistore/medistore/internal/service"
	"github.com/medistore/medistore/internal/telemetry"
)

// app is the wired client: one store, one HTTP core and the services on top.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	registry  *prometheus.Registry
	client    *httpapi.Client
	api       *service.AuthAPI
	sessions  *service.SessionStore
	catalog   *service.Catalog
	prefs     *service.Preferences
	telemetry *telemetry.Provider
	closers   []func() error
}

// loadConfig loads the configuration and applies CLI flag overrides before
// validation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if storageFlag != "" && storageFlag != cfg.Storage.Backend {
		cfg.Storage.Backend = storageFlag
		cfg.Storage.Path = ""
		cfg.SetDefaults()
	}
	if traceFlag {
		cfg.Telemetry.Trace = true
		cfg.Telemetry.Metrics = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

// newApp wires every component and restores the persisted session.
func newApp(cfg *config.Config) (*app, error) {
	logger := newLogger(cfg.Log.Level)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.Setup(telemetry.Config{
		ServiceName: "medistore",
		Version:     Version,
		Trace:       cfg.Telemetry.Trace,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	client := httpapi.NewClient(store,
		httpapi.WithBaseURL(cfg.API.BaseURL),
		httpapi.WithTimeout(cfg.APITimeout()),
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(httpapi.NewMetrics(registry)),
		httpapi.WithTracerProvider(tel.TracerProvider()),
		httpapi.WithUserAgent(cfg.API.UserAgent+"/"+Version),
	)
	api := service.NewAuthAPI(client, store, logger)
	sessions := service.NewSessionStore(api, store, logger,
		service.WithNotifier(notify.NewLogNotifier(logger)),
		service.WithMeterProvider(tel.MeterProvider()),
	)
	client.SetRefresher(sessions)
	client.SetInvalidationHook(sessions.Invalidate)
	sessions.Initialize()
	catalog := service.NewCatalog(client, store, cfg.CacheTTL(), logger)
	catalog.EvictOnSessionEnd(sessions)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		registry:  registry,
		client:    client,
		api:       api,
		sessions:  sessions,
		catalog:   catalog,
		prefs:     service.NewPreferences(store, nil),
		telemetry: tel,
		closers:   []func() error{closeStore},
	}, nil
}

// Close flushes telemetry and releases the store.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.cfg.Telemetry.Metrics {
		errs = append(errs, writeMetricsSummary(os.Stderr, a.registry))
	}
	errs = append(errs, a.telemetry.Shutdown(ctx))
	for _, fn := range a.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.NewStore(), noop, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendRedis:
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		s := rediskv.New(rc,
			rediskv.WithPrefix(cfg.Storage.Redis.Prefix),
			rediskv.WithOpTimeout(cfg.RedisOpTimeout()),
			rediskv.WithLogger(logger),
		)
		if err := s.Ping(); err != nil {
			_ = rc.Close()
			return nil, nil, err
		}
		return s, rc.Close, nil
	default:
		return state.NewFileStore(cfg.Storage.Path, logger), noop, nil
	}
}

// runWithApp adapts a command body that needs the wired client. The context
// is cancelled on interrupt and carries a logger tagged with the command.
func runWithApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), interruptSignals()...)
		defer stop()
		ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, a.logger.With("command", cmd.CommandPath()))

		runErr := fn(ctx, a, cmd, args)
		if err := a.Close(); err != nil {
			a.logger.Warn("shutdown incomplete", "error", err)
		}
		return runErr
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
