package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/database"
)

func newTestRepository(t *testing.T) *SourceHealthRepository {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "health.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := database.ApplyMigrations(db, database.MigrationsFS("")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewSourceHealthRepository(db)
}

func TestSourceHealthRepositoryUpsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	missing, err := repo.Get(ctx, "jikan")
	if err != nil || missing != nil {
		t.Fatalf("expected no record yet, got %+v, %v", missing, err)
	}

	checkedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, SourceHealth{SourceKey: "jikan", Healthy: false, LastError: "timeout", CheckedAt: checkedAt}); err != nil {
		t.Fatalf("upsert unhealthy: %v", err)
	}
	if err := repo.Upsert(ctx, SourceHealth{SourceKey: "jikan", Healthy: true, CheckedAt: checkedAt.Add(time.Minute)}); err != nil {
		t.Fatalf("upsert healthy: %v", err)
	}

	state, err := repo.Get(ctx, "jikan")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !state.Healthy || state.LastError != "" {
		t.Fatalf("expected healthy state without error, got %+v", state)
	}
	if !state.CheckedAt.Equal(checkedAt.Add(time.Minute)) {
		t.Fatalf("unexpected checked_at %s", state.CheckedAt)
	}
}

func TestSourceHealthRepositoryListSorted(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, key := range []string{"scrape", "jikan"} {
		if err := repo.Upsert(ctx, SourceHealth{SourceKey: key, Healthy: true}); err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].SourceKey != "jikan" || items[1].SourceKey != "scrape" {
		t.Fatalf("unexpected items %+v", items)
	}
}
