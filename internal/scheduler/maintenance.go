package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/notifications"
	"github.com/gabriel/anime-manga-browser/internal/repository"
)

// CachePruner drops expired payloads. cache.Store satisfies it.
type CachePruner interface {
	Prune(ctx context.Context) (int64, error)
}

type healthRepository interface {
	Get(ctx context.Context, sourceKey string) (*repository.SourceHealth, error)
	Upsert(ctx context.Context, state repository.SourceHealth) error
}

type MaintenanceConfig struct {
	Interval      time.Duration
	HealthTimeout time.Duration
}

// Maintenance prunes expired cache payloads and records source health on an interval,
// notifying when a source changes state. Cache and repo are optional.
type Maintenance struct {
	cache    CachePruner
	registry *connectors.Registry
	repo     healthRepository
	notifier notifications.Notifier
	cfg      MaintenanceConfig
	logger   *slog.Logger
	stopCh   chan struct{}

	// last known state per source when no repository is configured
	mu   sync.Mutex
	seen map[string]bool
}

func NewMaintenance(
	cache CachePruner,
	registry *connectors.Registry,
	repo healthRepository,
	notifier notifications.Notifier,
	cfg MaintenanceConfig,
	logger *slog.Logger,
) *Maintenance {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 10 * time.Second
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Maintenance{
		cache:    cache,
		registry: registry,
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		seen:     map[string]bool{},
	}
}

func (m *Maintenance) Start(ctx context.Context) {
	m.logger.Info("maintenance started", "interval", m.cfg.Interval.String())
	ticker := time.NewTicker(m.cfg.Interval)
	go func() {
		defer ticker.Stop()
		if err := m.RunOnce(ctx); err != nil {
			m.logger.Warn("maintenance initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("maintenance stopped")
				close(m.stopCh)
				return
			case <-ticker.C:
				if err := m.RunOnce(ctx); err != nil {
					m.logger.Warn("maintenance cycle failed", "error", err)
				}
			}
		}
	}()
}

func (m *Maintenance) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-m.stopCh:
	case <-time.After(timeout):
	}
}

func (m *Maintenance) RunOnce(ctx context.Context) error {
	if m.cache != nil {
		removed, err := m.cache.Prune(ctx)
		if err != nil {
			return fmt.Errorf("prune payload cache: %w", err)
		}
		if removed > 0 {
			m.logger.Info("pruned payload cache", "removed", removed)
		}
	}

	if m.registry == nil {
		return nil
	}

	healthCtx, cancel := context.WithTimeout(ctx, m.cfg.HealthTimeout)
	statuses := m.registry.Health(healthCtx)
	cancel()

	now := time.Now().UTC()
	for _, status := range statuses {
		changed, err := m.record(ctx, status, now)
		if err != nil {
			m.logger.Warn("record source health failed", "source", status.Key, "error", err)
			continue
		}
		if !status.Healthy {
			m.logger.Warn("source unhealthy", "source", status.Key, "error", status.Error)
		}
		if !changed {
			continue
		}

		message := notifications.SourceHealthMessage(status.Key, status.Name, status.Healthy, status.Error)
		if err := m.notifier.Notify(ctx, message); err != nil {
			m.logger.Warn("source health notification failed", "source", status.Key, "error", err)
		}
	}

	return nil
}

// record stores status and reports whether it differs from the previously known state. The
// first observation of a source is never a change.
func (m *Maintenance) record(ctx context.Context, status connectors.HealthStatus, checkedAt time.Time) (bool, error) {
	if m.repo == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		previous, known := m.seen[status.Key]
		m.seen[status.Key] = status.Healthy
		return known && previous != status.Healthy, nil
	}

	previous, err := m.repo.Get(ctx, status.Key)
	if err != nil {
		return false, err
	}
	if err := m.repo.Upsert(ctx, repository.SourceHealth{
		SourceKey: status.Key,
		Healthy:   status.Healthy,
		LastError: status.Error,
		CheckedAt: checkedAt,
	}); err != nil {
		return false, err
	}
	return previous != nil && previous.Healthy != status.Healthy, nil
}
