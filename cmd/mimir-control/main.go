// Package main initializes and runs the mimir service.
//
// It acts as the composition root: it loads configuration, connects to
// PostgreSQL and Redis, starts the registry syncer and serves the REST API
// next to the observability server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/controlapi"
	"github.com/rafaeljc/mimir/internal/database"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/ruleengine"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/syncer"
	"github.com/rafaeljc/mimir/migrations"
)

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	baseLog := logger.New(&cfg.App)
	slog.SetDefault(baseLog)
	cfg.LogConfig(baseLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, baseLog)

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrations.Up(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		baseLog.Info("database migrations applied")
	}
	go database.RunPoolMonitor(ctx, pool, cfg.Database.MonitorInterval)

	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	redisCache := cache.NewRedisCache(redisClient, cfg.Cache.L2Prefix, cfg.Cache.L2TTL, cfg.Syncer.Channel)
	defer redisCache.Close()
	go cache.RunPoolMonitor(ctx, redisClient, cfg.Redis.MonitorInterval)

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	repo := store.NewPostgresStore(pool)
	registry := strategy.NewRegistry()

	// Subscriber stays a nil interface when the syncer is disabled, so the
	// service falls back to polling.
	var sub syncer.Subscriber
	if cfg.Syncer.Enabled {
		sub = redisCache
	}
	registrySyncer := syncer.New(logger.Component(baseLog, "syncer"), cfg.Syncer, repo, registry, sub)

	deps := controlapi.Dependencies{
		Repo:      repo,
		Registry:  registry,
		Engine:    ruleengine.New(logger.Component(baseLog, "ruleengine")),
		Reloader:  registrySyncer,
		Publisher: redisCache,
		Logger:    logger.Component(baseLog, "controlapi"),
	}

	if cfg.Cache.Enabled {
		memCache, err := cache.NewMemoryCache(cfg.Cache.L1Capacity, cfg.Cache.L1TTL)
		if err != nil {
			return fmt.Errorf("failed to create plan cache: %w", err)
		}
		defer memCache.Close()
		go memCache.RunMetricsCollector(ctx, cfg.Cache.MetricsInterval)

		deps.L1 = memCache
		deps.L2 = redisCache
	}

	ctl := cfg.Server.Control
	api := controlapi.NewAPIWithConfig(deps, ctl.KeyHash(), !ctl.AuthEnabled())
	if !ctl.AuthEnabled() {
		baseLog.Warn("API key hash not configured, authentication is DISABLED")
	}

	// -------------------------------------------------------------------------
	// 4. Background Workers & Servers
	// -------------------------------------------------------------------------
	errChan := make(chan error, 2)

	if cfg.Syncer.Enabled {
		go func() {
			if err := registrySyncer.Run(ctx); err != nil {
				errChan <- fmt.Errorf("syncer stopped: %w", err)
			}
		}()
	} else if err := registrySyncer.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	obsServer := observability.NewServer(
		logger.Component(baseLog, "observability"),
		&cfg.Observability,
		database.NewHealthChecker(pool),
		redisCache,
		registrySyncer,
	)
	if err := obsServer.Start(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ctl.Addr(),
		Handler:           api.Router,
		ReadTimeout:       ctl.ReadTimeout,
		WriteTimeout:      ctl.WriteTimeout,
		ReadHeaderTimeout: ctl.ReadHeaderTimeout,
		IdleTimeout:       ctl.IdleTimeout,
		MaxHeaderBytes:    ctl.MaxHeaderBytes,
	}

	go func() {
		baseLog.Info("REST API listening", slog.String("addr", httpServer.Addr), slog.Bool("tls", ctl.TLSEnabled))

		var err error
		if ctl.TLSEnabled {
			err = httpServer.ListenAndServeTLS(ctl.TLSCert, ctl.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Graceful Shutdown
	// -------------------------------------------------------------------------
	select {
	case err := <-errChan:
		stop()
		return err
	case <-ctx.Done():
		baseLog.Info("shutdown signal received, stopping servers...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("REST API shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	baseLog.Info("service exited successfully")
	return nil
}
