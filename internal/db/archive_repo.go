package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"laborcurve/internal/types"
)

// ArchiveRepository stores compressed bundles of closed encounters together
// with their replay statistics.
type ArchiveRepository struct {
	db DBTX
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(db DBTX) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

const archiveColumns = `id, encounter_id, bundle, encoding, event_count,
	replay_points, mean_abs_error_hr, archived_at`

// Save writes an archive record. A second archive of the same encounter
// replaces the first, so redelivered queue messages are idempotent.
func (r *ArchiveRepository) Save(ctx context.Context, rec *types.ArchiveRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO encounter_archives (
			id, encounter_id, bundle, encoding, event_count,
			replay_points, mean_abs_error_hr, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		ON CONFLICT (encounter_id) DO UPDATE SET
			bundle = EXCLUDED.bundle,
			encoding = EXCLUDED.encoding,
			event_count = EXCLUDED.event_count,
			replay_points = EXCLUDED.replay_points,
			mean_abs_error_hr = EXCLUDED.mean_abs_error_hr,
			archived_at = EXCLUDED.archived_at`,
		rec.ID,
		rec.EncounterID,
		rec.Bundle,
		rec.Encoding,
		rec.EventCount,
		rec.ReplayPoints,
		rec.MeanAbsErrorHr,
		nilIfZeroTime(rec.ArchivedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save archive", err)
	}
	return nil
}

// GetByEncounter returns the archive of one encounter.
func (r *ArchiveRepository) GetByEncounter(ctx context.Context, encounterID string) (*types.ArchiveRecord, error) {
	var rec types.ArchiveRecord
	err := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM encounter_archives WHERE encounter_id = $1`, archiveColumns),
		encounterID,
	).Scan(
		&rec.ID,
		&rec.EncounterID,
		&rec.Bundle,
		&rec.Encoding,
		&rec.EventCount,
		&rec.ReplayPoints,
		&rec.MeanAbsErrorHr,
		&rec.ArchivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundArchive, "archive not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve archive", err)
	}
	return &rec, nil
}
