package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzahran/scalpbot/internal/domain"
)

// StrategySettingsStore implements domain.StrategySettingsStore using
// PostgreSQL. Enable flags and parameter overrides survive restarts so a
// strategy tuned over the API comes back in the same state.
type StrategySettingsStore struct {
	pool *pgxpool.Pool
}

// NewStrategySettingsStore creates a new StrategySettingsStore backed by the
// given connection pool.
func NewStrategySettingsStore(pool *pgxpool.Pool) *StrategySettingsStore {
	return &StrategySettingsStore{pool: pool}
}

// Get retrieves the persisted settings for one strategy kind.
func (s *StrategySettingsStore) Get(ctx context.Context, kind domain.StrategyKind) (domain.StrategySettings, error) {
	const query = `SELECT kind, enabled, overrides, updated_at FROM strategy_settings WHERE kind = $1`

	var out domain.StrategySettings
	var overridesJSON []byte

	err := s.pool.QueryRow(ctx, query, string(kind)).Scan(
		&out.Kind, &out.Enabled, &overridesJSON, &out.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StrategySettings{}, domain.ErrNotFound
		}
		return domain.StrategySettings{}, fmt.Errorf("postgres: get strategy settings %s: %w", kind, err)
	}

	if overridesJSON != nil {
		if err := json.Unmarshal(overridesJSON, &out.Overrides); err != nil {
			return domain.StrategySettings{}, fmt.Errorf("postgres: unmarshal strategy settings %s: %w", kind, err)
		}
	}

	return out, nil
}

// Upsert inserts or updates one strategy's settings. Overrides are stored as
// JSONB.
func (s *StrategySettingsStore) Upsert(ctx context.Context, settings domain.StrategySettings) error {
	overridesJSON, err := json.Marshal(settings.Overrides)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy settings %s: %w", settings.Kind, err)
	}

	const query = `
		INSERT INTO strategy_settings (kind, enabled, overrides, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (kind) DO UPDATE SET
			enabled    = EXCLUDED.enabled,
			overrides  = EXCLUDED.overrides,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query, string(settings.Kind), settings.Enabled, overridesJSON)
	if err != nil {
		return fmt.Errorf("postgres: upsert strategy settings %s: %w", settings.Kind, err)
	}
	return nil
}

// List returns the persisted settings for every strategy kind.
func (s *StrategySettingsStore) List(ctx context.Context) ([]domain.StrategySettings, error) {
	const query = `SELECT kind, enabled, overrides, updated_at FROM strategy_settings ORDER BY kind`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategy settings: %w", err)
	}
	defer rows.Close()

	var all []domain.StrategySettings
	for rows.Next() {
		var settings domain.StrategySettings
		var overridesJSON []byte

		if err := rows.Scan(&settings.Kind, &settings.Enabled, &overridesJSON, &settings.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy settings: %w", err)
		}

		if overridesJSON != nil {
			if err := json.Unmarshal(overridesJSON, &settings.Overrides); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal strategy settings: %w", err)
			}
		}

		all = append(all, settings)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategy settings rows: %w", err)
	}
	return all, nil
}

// Compile-time interface check.
var _ domain.StrategySettingsStore = (*StrategySettingsStore)(nil)
