package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	AppName     string `env:"APP_NAME" envDefault:"anime-manga-browser"`
	Port        string `env:"APP_PORT" envDefault:"8080"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile     string `env:"LOG_FILE"`
	LogLevel    slog.Level

	SourceKey         string  `env:"SOURCE_KEY" envDefault:"jikan"`
	JikanBaseURL      string  `env:"JIKAN_BASE_URL" envDefault:"https://api.jikan.moe/v4"`
	JikanRPS          float64 `env:"JIKAN_RPS" envDefault:"3"`
	JikanCacheMinutes int     `env:"JIKAN_CACHE_MINUTES" envDefault:"60"`
	ProfilesPath      string  `env:"PROFILES_PATH" envDefault:"./profiles"`
	ProfilesWatch     bool    `env:"PROFILES_WATCH" envDefault:"false"`
	ScrapeBaseURL     string  `env:"SCRAPE_BASE_URL"`
	IndexDedup        bool    `env:"INDEX_DEDUP" envDefault:"true"`

	CacheBackend   string `env:"CACHE_BACKEND" envDefault:"memory"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/cache.sqlite"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	FallbackCatalogPath string `env:"FALLBACK_CATALOG_PATH"`

	MaintenanceEnabled bool   `env:"MAINTENANCE_ENABLED" envDefault:"true"`
	MaintenanceMinutes int    `env:"MAINTENANCE_MINUTES" envDefault:"15"`
	NotifyWebhookURL   string `env:"NOTIFY_WEBHOOK_URL"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MaintenanceMinutes <= 0 {
		cfg.MaintenanceMinutes = 15
	}
	if cfg.JikanCacheMinutes < 0 {
		cfg.JikanCacheMinutes = 0
	}
	cfg.SourceKey = strings.ToLower(strings.TrimSpace(cfg.SourceKey))

	switch cfg.CacheBackend {
	case CacheNone, CacheMemory, CacheSQLite, CacheRedis:
	default:
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND %q, expected none|memory|sqlite|redis", cfg.CacheBackend)
	}

	level, err := parseLogLevel(cfg.LogLevelRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}
