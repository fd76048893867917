package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/cache"
	"github.com/gabriel/anime-manga-browser/internal/config"
	"github.com/gabriel/anime-manga-browser/internal/database"
	"github.com/gabriel/anime-manga-browser/internal/repository"
)

func main() {
	var (
		backend    = flag.String("backend", "", "Cache backend to prune (default: CACHE_BACKEND)")
		showHealth = flag.Bool("health", false, "Also print the recorded source health")
		timeout    = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if *backend == "" {
		*backend = cfg.CacheBackend
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

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

	store, err := cache.Open(ctx, *backend, db, cfg.RedisURL, logger)
	if err != nil {
		slog.Error("failed to open payload cache", "backend", *backend, "error", err)
		os.Exit(1)
	}
	if store == nil {
		slog.Info("payload cache disabled, nothing to prune")
	} else {
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}
		removed, err := store.Prune(ctx)
		if err != nil {
			slog.Error("prune failed", "backend", *backend, "error", err)
			os.Exit(1)
		}
		slog.Info("prune complete", "backend", *backend, "removed", removed)
	}

	if !*showHealth {
		return
	}

	states, err := repository.NewSourceHealthRepository(db).List(ctx)
	if err != nil {
		slog.Error("failed to list source health", "error", err)
		os.Exit(1)
	}
	for _, state := range states {
		status := "healthy"
		if !state.Healthy {
			status = "unhealthy: " + state.LastError
		}
		fmt.Printf("%-16s %-20s %s\n", state.SourceKey, state.CheckedAt.Format(time.RFC3339), status)
	}
}
