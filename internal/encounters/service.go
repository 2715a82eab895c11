// Package encounters implements the encounter service: the logbook of
// encounters and their events, settings, outcome recording, and the
// prediction views computed from them by the labor engine.
//
// The service loads what a view needs concurrently and then calls the pure
// engine synchronously; it never caches predictions.
package encounters

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"laborcurve/internal/types"
)

// EncounterRepository provides data access for encounters.
type EncounterRepository interface {
	Create(ctx context.Context, enc *types.Encounter) error
	GetByID(ctx context.Context, id string) (*types.Encounter, error)
	List(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, error)
	ListAll(ctx context.Context) ([]*types.Encounter, error)
	Update(ctx context.Context, enc *types.Encounter) error
	SetOutcome(ctx context.Context, id string, outcome types.Outcome) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Upsert(ctx context.Context, enc *types.Encounter) error
}

// EventRepository provides data access for events.
type EventRepository interface {
	Create(ctx context.Context, evt *types.Event) error
	GetByID(ctx context.Context, encounterID, id string) (*types.Event, error)
	ListByEncounter(ctx context.Context, encounterID string) ([]types.Event, error)
	ListAll(ctx context.Context) ([]types.Event, error)
	Update(ctx context.Context, evt *types.Event) error
	Delete(ctx context.Context, encounterID, id string) error
	DeleteAll(ctx context.Context) error
	Upsert(ctx context.Context, evt *types.Event) error
}

// SettingsRepository stores the single settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (types.Settings, error)
	Put(ctx context.Context, s types.Settings) error
	Reset(ctx context.Context) error
}

// Repos groups the repositories the service works with.
type Repos struct {
	Encounters EncounterRepository
	Events     EventRepository
	Settings   SettingsRepository
}

// Transactor runs fn with repositories bound to one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(r Repos) error) error
}

// ClosedPublisher announces encounters that received a delivered or cs
// outcome.
type ClosedPublisher interface {
	PublishEncounterClosed(ctx context.Context, msg types.EncounterClosedMessage) error
}

// Options carries presentation settings taken from configuration.
type Options struct {
	// DisplayLocation renders summary timestamps. Defaults to UTC.
	DisplayLocation *time.Location
}

// Service implements encounter, event, settings and prediction operations.
type Service struct {
	repos     Repos
	tx        Transactor
	publisher ClosedPublisher
	clock     types.Clock
	logger    *slog.Logger
	loc       *time.Location
}

// NewService creates a Service with the provided dependencies. publisher,
// clock and logger may be nil.
func NewService(
	repos Repos,
	tx Transactor,
	publisher ClosedPublisher,
	clock types.Clock,
	logger *slog.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	loc := opts.DisplayLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repos:     repos,
		tx:        tx,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		loc:       loc,
	}
}

func newEncounterID() string { return "enc_" + uuid.NewString() }
func newEventID() string     { return "evt_" + uuid.NewString() }

// CreateEncounter stores a new open encounter. StartedAt defaults to now;
// outcome fields on the input are ignored.
func (s *Service) CreateEncounter(ctx context.Context, in *types.Encounter) (*types.Encounter, error) {
	now := s.clock.Now()
	enc := &types.Encounter{
		ID:                  newEncounterID(),
		Title:               strings.TrimSpace(in.Title),
		StartedAt:           in.StartedAt,
		Parity:              in.Parity,
		GestationalAgeWeeks: in.GestationalAgeWeeks,
		IsInduction:         in.IsInduction,
		EpiduralPlanned:     in.EpiduralPlanned,
		Status:              types.EncounterOpen,
		Tags:                strings.TrimSpace(in.Tags),
		Notes:               in.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if enc.StartedAt.IsZero() {
		enc.StartedAt = now
	}
	if err := enc.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Encounters.Create(ctx, enc); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "encounter created",
		"encounter_id", enc.ID,
		"parity", string(enc.Parity),
		"induction", enc.IsInduction,
	)
	return enc, nil
}

// GetEncounter returns one encounter.
func (s *Service) GetEncounter(ctx context.Context, id string) (*types.Encounter, error) {
	return s.repos.Encounters.GetByID(ctx, id)
}

// ListEncounters returns one page of encounters, most recently updated
// first, and the pagination info for the next page.
func (s *Service) ListEncounters(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, types.PageInfo, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, types.PageInfo{}, types.NewAppError(types.ErrCodeValidationInvalidStatus,
			"status must be open, delivered or cs", nil)
	}

	rows, err := s.repos.Encounters.List(ctx, filter)
	if err != nil {
		return nil, types.PageInfo{}, err
	}

	limit := filter.NormalizedLimit()
	page := types.PageInfo{}
	if len(rows) > limit {
		rows = rows[:limit]
		page.HasMore = true
		page.NextCursor = types.CursorAfter(rows[len(rows)-1]).String()
	}
	if rows == nil {
		rows = []*types.Encounter{}
	}
	return rows, page, nil
}

// EncounterPatch carries the optional metadata changes of an encounter.
// Parity and start time are fixed at creation.
type EncounterPatch struct {
	Title               *string
	GestationalAgeWeeks *float64
	IsInduction         *bool
	EpiduralPlanned     *bool
	Tags                *string
	Notes               *string
}

// UpdateEncounter applies patch and returns the stored encounter.
func (s *Service) UpdateEncounter(ctx context.Context, id string, patch EncounterPatch) (*types.Encounter, error) {
	enc, err := s.repos.Encounters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		enc.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.GestationalAgeWeeks != nil {
		enc.GestationalAgeWeeks = patch.GestationalAgeWeeks
	}
	if patch.IsInduction != nil {
		enc.IsInduction = *patch.IsInduction
	}
	if patch.EpiduralPlanned != nil {
		enc.EpiduralPlanned = *patch.EpiduralPlanned
	}
	if patch.Tags != nil {
		enc.Tags = strings.TrimSpace(*patch.Tags)
	}
	if patch.Notes != nil {
		enc.Notes = *patch.Notes
	}
	if err := enc.Validate(); err != nil {
		return nil, err
	}

	if err := s.repos.Encounters.Update(ctx, enc); err != nil {
		return nil, err
	}
	enc.UpdatedAt = s.clock.Now()
	return enc, nil
}

// DeleteEncounter removes an encounter and all of its events.
func (s *Service) DeleteEncounter(ctx context.Context, id string) error {
	if err := s.repos.Encounters.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "encounter deleted", "encounter_id", id)
	return nil
}

// RecordOutcome sets status, outcome time, mode and note. A closed status
// without an outcome time uses now. When the encounter ends up delivered or
// cs an encounter.closed message is published; a publish failure is logged
// and does not undo the outcome.
func (s *Service) RecordOutcome(ctx context.Context, id string, outcome types.Outcome) (*types.Encounter, error) {
	now := s.clock.Now()
	if outcome.Status.IsClosed() && outcome.At == nil {
		outcome.At = &now
	}
	if err := outcome.Validate(); err != nil {
		return nil, err
	}

	enc, err := s.repos.Encounters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Encounters.SetOutcome(ctx, id, outcome); err != nil {
		return nil, err
	}
	outcome.Apply(enc)
	enc.UpdatedAt = now

	s.logger.InfoContext(ctx, "outcome recorded",
		"encounter_id", id,
		"status", string(enc.Status),
		"mode", string(enc.OutcomeMode),
	)

	if enc.Status.IsClosed() && s.publisher != nil {
		msg := types.EncounterClosedMessage{
			Type:        types.EventTypeEncounterClosed,
			EncounterID: enc.ID,
			Status:      enc.Status,
			OutcomeAt:   enc.OutcomeAt,
			ClosedAt:    now,
			RequestID:   types.GetRequestID(ctx),
		}
		if err := s.publisher.PublishEncounterClosed(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "failed to publish encounter closed message",
				"encounter_id", enc.ID,
				"error", err,
			)
		}
	}
	return enc, nil
}

// snapshot is everything a prediction view reads.
type snapshot struct {
	encounter *types.Encounter
	events    []types.Event
	settings  types.Settings
}

// load fetches the encounter, its events and (optionally) the settings
// concurrently.
func (s *Service) load(ctx context.Context, id string, withSettings bool) (*snapshot, error) {
	var snap snapshot

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		enc, err := s.repos.Encounters.GetByID(gCtx, id)
		snap.encounter = enc
		return err
	})
	g.Go(func() error {
		events, err := s.repos.Events.ListByEncounter(gCtx, id)
		snap.events = events
		return err
	})
	if withSettings {
		g.Go(func() error {
			settings, err := s.repos.Settings.Get(gCtx)
			snap.settings = settings
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}
