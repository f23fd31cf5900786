package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrisync/agrisync-engine/api/controllers"
	"github.com/agrisync/agrisync-engine/api/routes"
	"github.com/agrisync/agrisync-engine/internal/cart"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/internal/preferences"
	"github.com/agrisync/agrisync-engine/internal/restrictions"
	"github.com/agrisync/agrisync-engine/internal/suggestions"
	"github.com/agrisync/agrisync-engine/internal/sweeper"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	"github.com/agrisync/agrisync-engine/pkg/config"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "engined"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "engined",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	blob, pinger, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logg.Error(ctx, "error closing storage", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	clk := clock.System()

	discountEngine, err := discounts.NewEngine(ctx, discounts.Params{
		Store:   blob,
		Logger:  logg,
		Clock:   clk,
		Metrics: engineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create discount engine", err)
		os.Exit(1)
	}
	cartStore, err := cart.NewStore(ctx, cart.Params{
		Store:     blob,
		Logger:    logg,
		Clock:     clk,
		Metrics:   engineMetrics,
		Discounts: discountEngine,
		Retention: cfg.Engine.CartRetention,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart store", err)
		os.Exit(1)
	}
	restrictionEngine, err := restrictions.NewEngine(ctx, restrictions.Params{
		Store:   blob,
		Logger:  logg,
		Clock:   clk,
		Metrics: engineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create restriction engine", err)
		os.Exit(1)
	}
	suggestionEngine, err := suggestions.NewEngine(ctx, suggestions.Params{
		Store:      blob,
		Logger:     logg,
		Clock:      clk,
		Metrics:    engineMetrics,
		HistoryCap: cfg.Engine.HistoryCap,
		Retention:  cfg.Engine.HistoryRetention,
	})
	if err != nil {
		logg.Error(ctx, "failed to create suggestion engine", err)
		os.Exit(1)
	}
	preferenceStore, err := preferences.NewStore(ctx, preferences.Params{
		Store:   blob,
		Logger:  logg,
		Metrics: engineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create preference store", err)
		os.Exit(1)
	}

	sweepJob, err := sweeper.New(sweeper.Params{
		Logger:   logg,
		Metrics:  engineMetrics,
		Interval: cfg.Engine.SweepInterval,
		Tasks:    sweepTasks(logg, cartStore, suggestionEngine, pinger),
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweep job", err)
		os.Exit(1)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepJob.Run(sweepCtx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.Driver,
	})
	logg.Info(startCtx, "starting engine server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, pinger, routes.Engines{
			Cart:         cartStore,
			Discounts:    discountEngine,
			Restrictions: restrictionEngine,
			Suggestions:  suggestionEngine,
			Preferences:  preferenceStore,
		}, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "engine server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newStorage selects the kv backend for the configured driver. The returned
// pinger is nil for backends without a connection to check.
func newStorage(ctx context.Context, cfg *config.Config) (kv.Store, controllers.Pinger, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return kv.NewMemory(), nil, noop, nil
	case config.StorageDriverFile:
		files, err := kv.NewFiles(cfg.Storage.FileDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return files, nil, noop, nil
	case config.StorageDriverSQLite:
		sqlite, err := kv.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite, sqlite, sqlite.Close, nil
	case config.StorageDriverRedis:
		redis, err := kv.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		return redis, redis, redis.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func sweepTasks(logg *logger.Logger, cartStore cart.Store, suggestionEngine suggestions.Engine, pinger controllers.Pinger) []sweeper.Task {
	tasks := []sweeper.Task{
		{
			Name: "cart_retention",
			Run: func(ctx context.Context) error {
				if evicted := cartStore.Sweep(ctx); evicted > 0 {
					logg.Info(logg.WithField(ctx, "evicted", evicted), "cart retention sweep evicted items")
				}
				return nil
			},
		},
		{
			Name: "history_retention",
			Run: func(ctx context.Context) error {
				if dropped := suggestionEngine.Prune(ctx); dropped > 0 {
					logg.Info(logg.WithField(ctx, "dropped", dropped), "view history sweep dropped entries")
				}
				return nil
			},
		},
	}
	if pinger != nil {
		tasks = append(tasks, sweeper.Task{
			Name: "storage_ping",
			Run: func(ctx context.Context) error {
				return pinger.Ping(ctx)
			},
		})
	}
	return tasks
}
