package postgres

import (
	"context"
	"errors"
	"fmt"

	"expensemate/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SiteSettingsStore persists the single-row maintenance switch.
type SiteSettingsStore struct {
	pool *pgxpool.Pool
}

func NewSiteSettingsStore(pool *pgxpool.Pool) *SiteSettingsStore {
	return &SiteSettingsStore{pool: pool}
}

func (s *SiteSettingsStore) GetSiteSettings(ctx context.Context) (domain.SiteSettings, error) {
	const q = `
		SELECT maintenance_mode, updated_at
		FROM site_settings
		WHERE id = 1
	`

	var settings domain.SiteSettings
	err := s.pool.QueryRow(ctx, q).Scan(&settings.MaintenanceMode, &settings.UpdatedAt)
	if err != nil {
		// The row is seeded by the schema; treat a missing one as defaults.
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SiteSettings{}, nil
		}
		return domain.SiteSettings{}, fmt.Errorf("get site settings: %w", err)
	}
	return settings, nil
}

func (s *SiteSettingsStore) SetMaintenanceMode(ctx context.Context, enabled bool) (domain.SiteSettings, error) {
	const q = `
		INSERT INTO site_settings (id, maintenance_mode, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id)
		DO UPDATE SET maintenance_mode = EXCLUDED.maintenance_mode, updated_at = now()
		RETURNING maintenance_mode, updated_at
	`

	var settings domain.SiteSettings
	err := s.pool.QueryRow(ctx, q, enabled).Scan(&settings.MaintenanceMode, &settings.UpdatedAt)
	if err != nil {
		return domain.SiteSettings{}, fmt.Errorf("set maintenance mode: %w", err)
	}
	return settings, nil
}
