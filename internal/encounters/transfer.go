package encounters

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"laborcurve/internal/types"
)

// ExportEncounter bundles one encounter with its events.
func (s *Service) ExportEncounter(ctx context.Context, id string) (*types.Bundle, error) {
	snap, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return &types.Bundle{
		Version:    types.BundleVersion,
		ExportedAt: s.clock.Now(),
		Kind:       types.BundleKindEncounter,
		Encounters: []types.Encounter{*snap.encounter},
		Events:     snap.events,
	}, nil
}

// ExportAll bundles every encounter, every event and the settings.
func (s *Service) ExportAll(ctx context.Context) (*types.Bundle, error) {
	var (
		encounters []*types.Encounter
		events     []types.Event
		settings   types.Settings
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		encounters, err = s.repos.Encounters.ListAll(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.repos.Events.ListAll(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.repos.Settings.Get(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &types.Bundle{
		Version:    types.BundleVersion,
		ExportedAt: s.clock.Now(),
		Kind:       types.BundleKindAll,
		Settings:   &settings,
		Encounters: make([]types.Encounter, 0, len(encounters)),
		Events:     events,
	}
	for _, enc := range encounters {
		b.Encounters = append(b.Encounters, *enc)
	}
	if b.Events == nil {
		b.Events = []types.Event{}
	}
	return b, nil
}

// ParseImportMode maps the query value to an ImportMode; empty means merge.
func ParseImportMode(v string) (types.ImportMode, error) {
	switch types.ImportMode(strings.ToLower(strings.TrimSpace(v))) {
	case "", types.ImportMerge:
		return types.ImportMerge, nil
	case types.ImportReplace:
		return types.ImportReplace, nil
	}
	return "", types.NewAppErrorWithDetails(types.ErrCodeValidationImportMode,
		"mode must be merge or replace", nil,
		map[string]any{"mode": v})
}

// prepareImport assigns missing ids, defaults status and validates every
// record before anything is written.
func (s *Service) prepareImport(b *types.Bundle) error {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return err
	}
	now := s.clock.Now()

	for i := range b.Encounters {
		enc := &b.Encounters[i]
		if enc.ID == "" {
			enc.ID = newEncounterID()
		}
		if enc.Status == "" {
			enc.Status = types.EncounterOpen
		}
		if enc.StartedAt.IsZero() {
			enc.StartedAt = now
		}
		if err := enc.Validate(); err != nil {
			return bundleRecordError(err, "encounter", enc.ID)
		}
	}
	for i := range b.Events {
		evt := &b.Events[i]
		if evt.ID == "" {
			evt.ID = newEventID()
		}
		if err := evt.Validate(); err != nil {
			return bundleRecordError(err, "event", evt.ID)
		}
	}
	if b.Settings != nil {
		if err := b.Settings.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// bundleRecordError tags a record validation error with the offending id.
func bundleRecordError(err error, kind, id string) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.WithDetails(map[string]any{"record": kind, "id": id})
	}
	return err
}

// Import writes a bundle in one transaction. Merge upserts records by id;
// replace first clears encounters, events and settings. Settings in the
// bundle overwrite the stored settings in both modes.
func (s *Service) Import(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error) {
	if mode == "" {
		mode = types.ImportMerge
	}
	if mode != types.ImportMerge && mode != types.ImportReplace {
		return types.ImportResult{}, types.NewAppError(types.ErrCodeValidationImportMode, "mode must be merge or replace", nil)
	}
	if err := s.prepareImport(b); err != nil {
		return types.ImportResult{}, err
	}

	result := types.ImportResult{Mode: mode}
	err := s.tx.InTx(ctx, func(r Repos) error {
		if mode == types.ImportReplace {
			if err := r.Events.DeleteAll(ctx); err != nil {
				return err
			}
			if err := r.Encounters.DeleteAll(ctx); err != nil {
				return err
			}
			if err := r.Settings.Reset(ctx); err != nil {
				return err
			}
		}
		if b.Settings != nil {
			if err := r.Settings.Put(ctx, *b.Settings); err != nil {
				return err
			}
			result.SettingsReplaced = true
		}
		for i := range b.Encounters {
			if err := r.Encounters.Upsert(ctx, &b.Encounters[i]); err != nil {
				return err
			}
			result.EncountersWritten++
		}
		for i := range b.Events {
			if err := r.Events.Upsert(ctx, &b.Events[i]); err != nil {
				return err
			}
			result.EventsWritten++
		}
		return nil
	})
	if err != nil {
		return types.ImportResult{}, err
	}

	s.logger.InfoContext(ctx, "bundle imported",
		"mode", string(mode),
		"encounters", result.EncountersWritten,
		"events", result.EventsWritten,
		"settings", result.SettingsReplaced,
	)
	return result, nil
}
