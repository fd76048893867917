package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/cache"
	"github.com/gabriel/anime-manga-browser/internal/config"
	connectordefaults "github.com/gabriel/anime-manga-browser/internal/connectors/defaults"
	"github.com/gabriel/anime-manga-browser/internal/connectors/yamlconnector"
	"github.com/gabriel/anime-manga-browser/internal/database"
	"github.com/gabriel/anime-manga-browser/internal/dispatcher"
	"github.com/gabriel/anime-manga-browser/internal/extract"
	"github.com/gabriel/anime-manga-browser/internal/fallback"
	apihttp "github.com/gabriel/anime-manga-browser/internal/http"
	"github.com/gabriel/anime-manga-browser/internal/logging"
	"github.com/gabriel/anime-manga-browser/internal/notifications"
	"github.com/gabriel/anime-manga-browser/internal/repository"
	"github.com/gabriel/anime-manga-browser/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, database.MigrationsFS(cfg.MigrationsPath)); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	store, err := cache.Open(context.Background(), cfg.CacheBackend, db, cfg.RedisURL, logger)
	if err != nil {
		slog.Error("failed to open payload cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	dedup := extract.DedupFirstSeen
	if !cfg.IndexDedup {
		dedup = extract.DedupKeepAll
	}
	registryOpts := connectordefaults.Options{
		JikanBaseURL:  cfg.JikanBaseURL,
		JikanRPS:      cfg.JikanRPS,
		JikanTTL:      time.Duration(cfg.JikanCacheMinutes) * time.Minute,
		ProfilesPath:  cfg.ProfilesPath,
		ScrapeBaseURL: cfg.ScrapeBaseURL,
		Dedup:         dedup,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
		Cache:         store,
		Logger:        logger,
	}
	registry, registryErr := connectordefaults.NewRegistry(registryOpts)
	if registry == nil {
		slog.Error("failed to build source registry", "error", registryErr)
		os.Exit(1)
	}
	if registryErr != nil {
		slog.Warn("source registry loaded with warnings", "error", registryErr)
	}
	if _, ok := registry.Get(cfg.SourceKey); !ok {
		slog.Warn("active source is not registered yet", "source", cfg.SourceKey)
	}

	var watcher *yamlconnector.Watcher
	if cfg.ProfilesWatch {
		watcher, err = yamlconnector.NewWatcher(cfg.ProfilesPath, func() {
			if err := connectordefaults.ReloadProfiles(registry, registryOpts); err != nil {
				slog.Warn("profiles reloaded with warnings", "error", err)
				return
			}
			slog.Info("profiles reloaded", "path", cfg.ProfilesPath)
		}, func(err error) {
			slog.Warn("profiles watcher error", "error", err)
		})
		if err != nil {
			slog.Warn("profiles watcher disabled", "path", cfg.ProfilesPath, "error", err)
		}
	}

	catalog, err := fallback.Load(cfg.FallbackCatalogPath)
	if err != nil {
		slog.Error("failed to load fallback catalog", "path", cfg.FallbackCatalogPath, "error", err)
		os.Exit(1)
	}
	var fallbackProvider dispatcher.Fallback
	if catalog != nil {
		fallbackProvider = catalog
	}
	browser := dispatcher.New(registry, cfg.SourceKey, fallbackProvider, logger)

	app := apihttp.NewServer(cfg, db, registry, browser)

	notifiers := []notifications.Notifier{notifications.NewLogNotifier(logger)}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.NotifyWebhookURL)
		if err != nil {
			slog.Warn("webhook notifier disabled", "error", err)
		} else {
			notifiers = append(notifiers, webhook)
		}
	}
	notifier := notifications.NewMultiNotifier(notifiers...)

	var pruner scheduler.CachePruner
	if store != nil {
		pruner = store
	}
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	maintenance := scheduler.NewMaintenance(
		pruner,
		registry,
		repository.NewSourceHealthRepository(db),
		notifier,
		scheduler.MaintenanceConfig{
			Interval: time.Duration(cfg.MaintenanceMinutes) * time.Minute,
		},
		logger,
	)
	if cfg.MaintenanceEnabled {
		maintenance.Start(maintenanceCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "source", cfg.SourceKey, "cache", cfg.CacheBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	if watcher != nil {
		watcher.Stop()
	}
	maintenanceCancel()
	if cfg.MaintenanceEnabled {
		maintenance.StopWait(2 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
