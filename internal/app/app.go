// Package app wires the store, lifecycle manager, cleaner and HTTP router
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"asyncq/internal/api"
	"asyncq/internal/config"
	"asyncq/internal/db"
	"asyncq/internal/db/repository"
	"asyncq/internal/domain"
	"asyncq/internal/filter"
	"asyncq/internal/middleware"
	"asyncq/internal/service/asyncquery"
	"asyncq/internal/store/gormstore"
	"asyncq/internal/store/memstore"
)

// Deps holds what main() must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully wired application.
type App struct {
	Store    domain.DataStore
	Manager  *asyncquery.Manager
	Cleaner  *asyncquery.Cleaner
	Metrics  *asyncquery.Metrics
	Registry *prometheus.Registry

	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

// New opens the configured store and wires the manager and cleaner on top of
// it. The cleaner is always built so its schedules are validated; whether it
// runs is up to the caller.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{cfg: cfg, logger: logger}

	// === Store ===
	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = store

	// === Metrics ===
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = asyncquery.NewMetrics(a.Registry)

	// === Services ===
	a.Manager = asyncquery.NewManager(store, filter.NewTranslator(),
		asyncquery.WithLogger(logger),
		asyncquery.WithMetrics(a.Metrics),
	)
	a.Cleaner, err = asyncquery.NewCleaner(a.Manager, cleanerConfig(cfg.Cleaner), logger, a.Metrics)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("cleaner: %w", err)
	}
	return a, nil
}

// openStore opens the backend named by STORE_BACKEND and registers its
// closer.
func (a *App) openStore(ctx context.Context) (domain.DataStore, error) {
	switch a.cfg.StoreBackend {
	case config.StoreSQLite, "":
		pools, err := db.OpenPair(a.cfg.MetaDBPath, 0)
		if err != nil {
			return nil, fmt.Errorf("open metastore: %w", err)
		}
		a.closers = append(a.closers, pools.Close)
		if err := db.RunMigrations(ctx, pools.Write); err != nil {
			return nil, fmt.Errorf("migrate metastore: %w", err)
		}
		version, err := db.SchemaVersion(ctx, pools.Read)
		if err != nil {
			return nil, err
		}
		a.logger.Info("metastore ready", "backend", config.StoreSQLite, "path", a.cfg.MetaDBPath, "schema_version", version)
		return repository.NewStore(pools.Write), nil

	case config.StoreGorm:
		store, err := gormstore.Open(a.cfg.MetaDBPath)
		if err != nil {
			return nil, fmt.Errorf("open metastore: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("metastore ready", "backend", config.StoreGorm, "path", a.cfg.MetaDBPath)
		return store, nil

	case config.StoreMemory:
		a.logger.Warn("using in-memory store; records are lost on exit")
		return memstore.New(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}
}

// Router builds the HTTP handler for the admin API. ctx bounds background
// work started by middleware.
func (a *App) Router(ctx context.Context) (http.Handler, error) {
	validator, err := middleware.NewHS256Validator(a.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("jwt validator: %w", err)
	}
	h := api.NewHandler(a.Manager, a.logger)
	return api.NewRouter(ctx, h, api.RouterConfig{
		Validator: validator,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			Burst:             a.cfg.RateLimitBurst,
		},
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		Gatherer:       a.Registry,
		Logger:         a.logger,
	}), nil
}

// Close releases the store. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func cleanerConfig(c config.CleanerConfig) asyncquery.CleanerConfig {
	return asyncquery.CleanerConfig{
		MaxRunTime:      c.MaxRunTime,
		Retention:       c.Retention,
		TimeoutSchedule: c.TimeoutSchedule,
		CleanupSchedule: c.CleanupSchedule,
		SweepTimeout:    c.SweepTimeout,
	}
}
