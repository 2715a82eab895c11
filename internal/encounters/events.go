package encounters

import (
	"context"
	"time"

	"laborcurve/internal/types"
)

// ListEvents returns the encounter's events in ascending timestamp order.
func (s *Service) ListEvents(ctx context.Context, encounterID string) ([]types.Event, error) {
	snap, err := s.load(ctx, encounterID, false)
	if err != nil {
		return nil, err
	}
	return snap.events, nil
}

// checkOutcomeWindow rejects events timestamped after the recorded outcome
// of a closed encounter.
func checkOutcomeWindow(enc *types.Encounter, ts time.Time) error {
	if enc.Status.IsClosed() && enc.OutcomeAt != nil && ts.After(*enc.OutcomeAt) {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictEncounterClosed,
			"event is later than the recorded outcome", nil,
			map[string]any{"outcome_at": enc.OutcomeAt.UTC().Format(time.RFC3339)})
	}
	return nil
}

// AddEvent validates and stores a new event, then bumps the encounter's
// updated_at. A zero timestamp means now.
func (s *Service) AddEvent(ctx context.Context, encounterID string, ts time.Time, data types.EventData) (*types.Event, error) {
	now := s.clock.Now()
	if ts.IsZero() {
		ts = now
	}
	evt := &types.Event{
		ID:          newEventID(),
		EncounterID: encounterID,
		Timestamp:   ts,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}

	enc, err := s.repos.Encounters.GetByID(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if err := checkOutcomeWindow(enc, ts); err != nil {
		return nil, err
	}

	if err := s.repos.Events.Create(ctx, evt); err != nil {
		return nil, err
	}
	if err := s.repos.Encounters.Touch(ctx, encounterID); err != nil {
		s.logger.WarnContext(ctx, "failed to touch encounter", "encounter_id", encounterID, "error", err)
	}

	s.logger.InfoContext(ctx, "event added",
		"encounter_id", encounterID,
		"event_id", evt.ID,
		"kind", string(evt.Kind()),
	)
	return evt, nil
}

// UpdateEvent replaces the timestamp and/or payload of an event. A nil ts
// or data keeps the stored value; a new payload may change the kind.
func (s *Service) UpdateEvent(ctx context.Context, encounterID, eventID string, ts *time.Time, data types.EventData) (*types.Event, error) {
	enc, err := s.repos.Encounters.GetByID(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	evt, err := s.repos.Events.GetByID(ctx, encounterID, eventID)
	if err != nil {
		return nil, err
	}

	if ts != nil {
		evt.Timestamp = *ts
	}
	if data != nil {
		evt.Data = data
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	if err := checkOutcomeWindow(enc, evt.Timestamp); err != nil {
		return nil, err
	}

	if err := s.repos.Events.Update(ctx, evt); err != nil {
		return nil, err
	}
	evt.UpdatedAt = s.clock.Now()
	if err := s.repos.Encounters.Touch(ctx, encounterID); err != nil {
		s.logger.WarnContext(ctx, "failed to touch encounter", "encounter_id", encounterID, "error", err)
	}
	return evt, nil
}

// DeleteEvent removes one event.
func (s *Service) DeleteEvent(ctx context.Context, encounterID, eventID string) error {
	if err := s.repos.Events.Delete(ctx, encounterID, eventID); err != nil {
		return err
	}
	if err := s.repos.Encounters.Touch(ctx, encounterID); err != nil {
		s.logger.WarnContext(ctx, "failed to touch encounter", "encounter_id", encounterID, "error", err)
	}
	return nil
}
