package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"laborcurve/internal/types"
)

// EncounterRepository provides data access for the encounters table.
type EncounterRepository struct {
	db DBTX
}

// NewEncounterRepository creates a new EncounterRepository backed by the
// given database connection (pool or transaction).
func NewEncounterRepository(db DBTX) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// encounterColumns defines the column order shared by every SELECT and by
// scanEncounter.
const encounterColumns = `id, title, started_at, parity, ga_weeks,
	is_induction, epidural_planned, status, outcome_at, outcome_mode,
	outcome_note, tags, notes, created_at, updated_at`

// scanEncounter scans one encounter from a pgx.Row or pgx.Rows. Column
// order must match encounterColumns.
func scanEncounter(row pgx.Row) (*types.Encounter, error) {
	var (
		enc         types.Encounter
		outcomeMode *string
		outcomeNote *string
		tags        *string
		notes       *string
	)
	err := row.Scan(
		&enc.ID,
		&enc.Title,
		&enc.StartedAt,
		&enc.Parity,
		&enc.GestationalAgeWeeks,
		&enc.IsInduction,
		&enc.EpiduralPlanned,
		&enc.Status,
		&enc.OutcomeAt,
		&outcomeMode,
		&outcomeNote,
		&tags,
		&notes,
		&enc.CreatedAt,
		&enc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	enc.OutcomeMode = types.OutcomeMode(derefString(outcomeMode))
	enc.OutcomeNote = derefString(outcomeNote)
	enc.Tags = derefString(tags)
	enc.Notes = derefString(notes)
	return &enc, nil
}

// Create inserts a new encounter. The caller sets the ID ("enc_" prefixed
// UUID); zero timestamps fall back to the database clock.
func (r *EncounterRepository) Create(ctx context.Context, enc *types.Encounter) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO encounters (
			id, title, started_at, parity, ga_weeks,
			is_induction, epidural_planned, status, outcome_at, outcome_mode,
			outcome_note, tags, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, COALESCE($14, NOW()), COALESCE($15, NOW())
		)`,
		enc.ID,
		enc.Title,
		enc.StartedAt,
		enc.Parity,
		enc.GestationalAgeWeeks,
		enc.IsInduction,
		enc.EpiduralPlanned,
		enc.Status,
		enc.OutcomeAt,
		nilIfEmpty(string(enc.OutcomeMode)),
		nilIfEmpty(enc.OutcomeNote),
		nilIfEmpty(enc.Tags),
		nilIfEmpty(enc.Notes),
		nilIfZeroTime(enc.CreatedAt),
		nilIfZeroTime(enc.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictEncounterExists, "encounter already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create encounter", err)
	}
	return nil
}

// GetByID retrieves one encounter. Returns ErrCodeNotFoundEncounter when no
// row matches.
func (r *EncounterRepository) GetByID(ctx context.Context, id string) (*types.Encounter, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM encounters WHERE id = $1`, encounterColumns),
		id,
	)
	enc, err := scanEncounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve encounter", err)
	}
	return enc, nil
}

// List returns encounters ordered by updated_at descending. It fetches
// limit+1 rows; the handler detects the extra row to set HasMore and trims
// it before responding.
func (r *EncounterRepository) List(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != "" {
		cursor, err := types.ParseEncounterCursor(filter.Cursor)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeValidationInvalidRequest,
				"invalid cursor format; expected RFC3339 timestamp and id",
				err,
			)
		}
		if cursor.ID == "" {
			conditions = append(conditions, fmt.Sprintf("updated_at < $%d", argIdx))
			args = append(args, cursor.UpdatedAt)
			argIdx++
		} else {
			conditions = append(conditions, fmt.Sprintf("(updated_at, id) < ($%d, $%d)", argIdx, argIdx+1))
			args = append(args, cursor.UpdatedAt, cursor.ID)
			argIdx += 2
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s FROM encounters %s ORDER BY updated_at DESC, id DESC LIMIT $%d`,
		encounterColumns,
		whereClause,
		argIdx,
	)
	args = append(args, filter.NormalizedLimit()+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query encounters", err)
	}
	defer rows.Close()

	var results []*types.Encounter
	for rows.Next() {
		enc, scanErr := scanEncounter(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan encounter row", scanErr)
		}
		results = append(results, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating encounter rows", err)
	}
	return results, nil
}

// ListAll returns every encounter, oldest first. Used by full exports.
func (r *EncounterRepository) ListAll(ctx context.Context) ([]*types.Encounter, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM encounters ORDER BY started_at ASC, id ASC`, encounterColumns),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query encounters", err)
	}
	defer rows.Close()

	var results []*types.Encounter
	for rows.Next() {
		enc, scanErr := scanEncounter(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan encounter row", scanErr)
		}
		results = append(results, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating encounter rows", err)
	}
	return results, nil
}

// Update writes the mutable metadata of an encounter. Outcome fields are
// changed through SetOutcome only. updated_at is set by the database.
func (r *EncounterRepository) Update(ctx context.Context, enc *types.Encounter) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE encounters SET
			title = $1,
			started_at = $2,
			parity = $3,
			ga_weeks = $4,
			is_induction = $5,
			epidural_planned = $6,
			tags = $7,
			notes = $8,
			updated_at = NOW()
		 WHERE id = $9`,
		enc.Title,
		enc.StartedAt,
		enc.Parity,
		enc.GestationalAgeWeeks,
		enc.IsInduction,
		enc.EpiduralPlanned,
		nilIfEmpty(enc.Tags),
		nilIfEmpty(enc.Notes),
		enc.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update encounter", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
	}
	return nil
}

// SetOutcome records status, outcome time, mode and note.
func (r *EncounterRepository) SetOutcome(ctx context.Context, id string, outcome types.Outcome) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE encounters SET
			status = $1,
			outcome_at = $2,
			outcome_mode = $3,
			outcome_note = $4,
			updated_at = NOW()
		 WHERE id = $5`,
		outcome.Status,
		outcome.At,
		nilIfEmpty(string(outcome.Mode)),
		nilIfEmpty(strings.TrimSpace(outcome.Note)),
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
	}
	return nil
}

// Touch bumps updated_at after one of the encounter's events changed.
func (r *EncounterRepository) Touch(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE encounters SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch encounter", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
	}
	return nil
}

// Delete removes an encounter. Its events are removed by ON DELETE CASCADE.
func (r *EncounterRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM encounters WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete encounter", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
	}
	return nil
}

// DeleteAll removes every encounter (and by cascade every event). Used by
// replace-mode imports inside a transaction.
func (r *EncounterRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM encounters`); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to clear encounters", err)
	}
	return nil
}

// Upsert writes an imported encounter, replacing any existing row with the
// same id. Timestamps from the bundle are preserved.
func (r *EncounterRepository) Upsert(ctx context.Context, enc *types.Encounter) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO encounters (
			id, title, started_at, parity, ga_weeks,
			is_induction, epidural_planned, status, outcome_at, outcome_mode,
			outcome_note, tags, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, COALESCE($14, NOW()), COALESCE($15, NOW())
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			started_at = EXCLUDED.started_at,
			parity = EXCLUDED.parity,
			ga_weeks = EXCLUDED.ga_weeks,
			is_induction = EXCLUDED.is_induction,
			epidural_planned = EXCLUDED.epidural_planned,
			status = EXCLUDED.status,
			outcome_at = EXCLUDED.outcome_at,
			outcome_mode = EXCLUDED.outcome_mode,
			outcome_note = EXCLUDED.outcome_note,
			tags = EXCLUDED.tags,
			notes = EXCLUDED.notes,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		enc.ID,
		enc.Title,
		enc.StartedAt,
		enc.Parity,
		enc.GestationalAgeWeeks,
		enc.IsInduction,
		enc.EpiduralPlanned,
		enc.Status,
		enc.OutcomeAt,
		nilIfEmpty(string(enc.OutcomeMode)),
		nilIfEmpty(enc.OutcomeNote),
		nilIfEmpty(enc.Tags),
		nilIfEmpty(enc.Notes),
		nilIfZeroTime(enc.CreatedAt),
		nilIfZeroTime(enc.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert encounter", err)
	}
	return nil
}
