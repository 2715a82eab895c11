package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"laborcurve/internal/types"
)

// settingsRowID is the primary key of the single application settings row.
const settingsRowID = "app"

// SettingsRepository reads and writes the single settings document.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings, or DefaultSettings when nothing has been
// saved yet. Stored documents missing newer keys keep the default values for
// those keys.
func (r *SettingsRepository) Get(ctx context.Context) (types.Settings, error) {
	s := types.DefaultSettings()
	err := r.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE id = $1`,
		settingsRowID,
	).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.DefaultSettings(), nil
		}
		return types.Settings{}, types.NewAppError(types.ErrCodeInternalDB, "failed to load settings", err)
	}
	return s, nil
}

// Put stores settings. The caller validates them first.
func (r *SettingsRepository) Put(ctx context.Context, s types.Settings) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO settings (id, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		settingsRowID,
		s,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save settings", err)
	}
	return nil
}

// Reset deletes the stored settings so Get falls back to defaults.
func (r *SettingsRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM settings WHERE id = $1`, settingsRowID); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to reset settings", err)
	}
	return nil
}
