package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"laborcurve/internal/types"
)

// EventRepository provides data access for the events table. The variant
// payload is stored as JSONB next to its kind tag and decoded back through
// types.DecodeEventData on read.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new EventRepository backed by the given
// database connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, encounter_id, kind, ts, data, created_at, updated_at`

// scanEvent scans one event row. Column order must match eventColumns.
func scanEvent(row pgx.Row) (*types.Event, error) {
	var (
		evt  types.Event
		kind types.EventKind
		data []byte
	)
	err := row.Scan(
		&evt.ID,
		&evt.EncounterID,
		&kind,
		&evt.Timestamp,
		&data,
		&evt.CreatedAt,
		&evt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	payload, err := types.DecodeEventData(kind, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload of event %s: %w", kind, evt.ID, err)
	}
	evt.Data = payload
	return &evt, nil
}

func marshalEventData(evt *types.Event) ([]byte, error) {
	if evt.Data == nil {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "event data is required", nil)
	}
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode event data", err)
	}
	return data, nil
}

// Create inserts a new event. Returns ErrCodeNotFoundEncounter when the
// parent encounter does not exist.
func (r *EventRepository) Create(ctx context.Context, evt *types.Event) error {
	data, err := marshalEventData(evt)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO events (id, encounter_id, kind, ts, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), COALESCE($7, NOW()))`,
		evt.ID,
		evt.EncounterID,
		evt.Kind(),
		evt.Timestamp,
		data,
		nilIfZeroTime(evt.CreatedAt),
		nilIfZeroTime(evt.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppError(types.ErrCodeNotFoundEncounter, "encounter not found", nil)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create event", err)
	}
	return nil
}

// GetByID retrieves one event scoped to its encounter.
func (r *EventRepository) GetByID(ctx context.Context, encounterID, id string) (*types.Event, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 AND encounter_id = $2`, eventColumns),
		id, encounterID,
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve event", err)
	}
	return evt, nil
}

// ListByEncounter returns the encounter's events in ascending timestamp
// order.
func (r *EventRepository) ListByEncounter(ctx context.Context, encounterID string) ([]types.Event, error) {
	return r.list(ctx,
		fmt.Sprintf(`SELECT %s FROM events WHERE encounter_id = $1 ORDER BY ts ASC, created_at ASC`, eventColumns),
		encounterID,
	)
}

// ListAll returns every stored event. Used by full exports.
func (r *EventRepository) ListAll(ctx context.Context) ([]types.Event, error) {
	return r.list(ctx,
		fmt.Sprintf(`SELECT %s FROM events ORDER BY encounter_id, ts ASC, created_at ASC`, eventColumns),
	)
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]types.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query events", err)
	}
	defer rows.Close()

	results := make([]types.Event, 0)
	for rows.Next() {
		evt, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event row", scanErr)
		}
		results = append(results, *evt)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating event rows", err)
	}
	return results, nil
}

// Update replaces the timestamp and payload of an event. The kind may
// change with the payload.
func (r *EventRepository) Update(ctx context.Context, evt *types.Event) error {
	data, err := marshalEventData(evt)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET kind = $1, ts = $2, data = $3, updated_at = NOW()
		 WHERE id = $4 AND encounter_id = $5`,
		evt.Kind(),
		evt.Timestamp,
		data,
		evt.ID,
		evt.EncounterID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update event", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
	}
	return nil
}

// Delete removes one event from an encounter.
func (r *EventRepository) Delete(ctx context.Context, encounterID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND encounter_id = $2`,
		id, encounterID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "event not found", nil)
	}
	return nil
}

// DeleteAll removes every event. Used by replace-mode imports.
func (r *EventRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM events`); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to clear events", err)
	}
	return nil
}

// Upsert writes an imported event, replacing any row with the same id.
func (r *EventRepository) Upsert(ctx context.Context, evt *types.Event) error {
	data, err := marshalEventData(evt)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO events (id, encounter_id, kind, ts, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), COALESCE($7, NOW()))
		 ON CONFLICT (id) DO UPDATE SET
			encounter_id = EXCLUDED.encounter_id,
			kind = EXCLUDED.kind,
			ts = EXCLUDED.ts,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		evt.ID,
		evt.EncounterID,
		evt.Kind(),
		evt.Timestamp,
		data,
		nilIfZeroTime(evt.CreatedAt),
		nilIfZeroTime(evt.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationBundle,
				"event references an unknown encounter", nil,
				map[string]any{"event_id": evt.ID, "encounter_id": evt.EncounterID})
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert event", err)
	}
	return nil
}
