package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gabriel/anime-manga-browser/internal/config"
)

// Open builds the payload store selected by backend. CacheNone yields a nil store. db is
// required for the sqlite backend only.
func Open(ctx context.Context, backend string, db *sql.DB, redisURL string, logger *slog.Logger) (Store, error) {
	switch backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory, "":
		return NewMemoryStore(), nil
	case config.CacheSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite cache requires an open database")
		}
		return NewSQLiteStore(db), nil
	case config.CacheRedis:
		return NewRedisStore(ctx, redisURL, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
