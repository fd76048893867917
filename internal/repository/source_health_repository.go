package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SourceHealth is the last recorded health check result for one source.
type SourceHealth struct {
	SourceKey string    `json:"sourceKey"`
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"lastError,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

type SourceHealthRepository struct {
	db *sql.DB
}

func NewSourceHealthRepository(db *sql.DB) *SourceHealthRepository {
	return &SourceHealthRepository{db: db}
}

// Get returns nil without error when the source has never been checked.
func (r *SourceHealthRepository) Get(ctx context.Context, sourceKey string) (*SourceHealth, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT source_key, healthy, last_error, checked_at
		FROM source_health
		WHERE source_key = ?
	`, sourceKey)

	state, err := scanSourceHealth(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get source health: %w", err)
	}
	return state, nil
}

func (r *SourceHealthRepository) List(ctx context.Context) ([]SourceHealth, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_key, healthy, last_error, checked_at
		FROM source_health
		ORDER BY source_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list source health: %w", err)
	}
	defer rows.Close()

	items := make([]SourceHealth, 0)
	for rows.Next() {
		state, err := scanSourceHealth(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source health: %w", err)
		}
		items = append(items, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source health: %w", err)
	}

	return items, nil
}

func (r *SourceHealthRepository) Upsert(ctx context.Context, state SourceHealth) error {
	var lastError sql.NullString
	if state.LastError != "" {
		lastError = sql.NullString{String: state.LastError, Valid: true}
	}
	if state.CheckedAt.IsZero() {
		state.CheckedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO source_health (source_key, healthy, last_error, checked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_key)
		DO UPDATE SET
			healthy = excluded.healthy,
			last_error = excluded.last_error,
			checked_at = excluded.checked_at
	`, state.SourceKey, state.Healthy, lastError, state.CheckedAt.UTC()); err != nil {
		return fmt.Errorf("upsert source health: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSourceHealth(row rowScanner) (*SourceHealth, error) {
	var state SourceHealth
	var lastError sql.NullString
	if err := row.Scan(&state.SourceKey, &state.Healthy, &lastError, &state.CheckedAt); err != nil {
		return nil, err
	}
	if lastError.Valid {
		state.LastError = lastError.String
	}
	return &state, nil
}
