package encounters

import (
	"context"
	"time"

	"laborcurve/internal/labor"
	"laborcurve/internal/types"
)

// Predict runs the ETA predictor over the encounter's full event log. A nil
// at means now.
func (s *Service) Predict(ctx context.Context, id string, at *time.Time) (types.PredictionResult, error) {
	snap, err := s.load(ctx, id, true)
	if err != nil {
		return types.PredictionResult{}, err
	}
	ref := s.clock.Now()
	if at != nil {
		ref = *at
	}
	return labor.Predict(snap.encounter, snap.events, snap.settings, ref), nil
}

// ReplayReport is a replay of one encounter, scored against its outcome
// when one is recorded.
type ReplayReport struct {
	EncounterID    string              `json:"encounter_id"`
	OutcomeAt      *time.Time          `json:"outcome_at,omitempty"`
	Points         []types.ReplayPoint `json:"points"`
	Scored         int                 `json:"scored"`
	MeanAbsErrorHr *float64            `json:"mean_abs_error_hr,omitempty"`
}

// BuildReplayReport replays at every exam (at == nil) or at one instant.
func BuildReplayReport(enc *types.Encounter, events []types.Event, settings types.Settings, at *time.Time) ReplayReport {
	var points []types.ReplayPoint
	if at != nil {
		points = []types.ReplayPoint{labor.Replay(enc, events, settings, *at)}
	} else {
		points = labor.ReplayAll(enc, events, settings)
	}

	report := ReplayReport{
		EncounterID: enc.ID,
		OutcomeAt:   enc.OutcomeAt,
		Points:      points,
	}
	if mean, n, ok := labor.MeanAbsError(points); ok {
		report.Scored = n
		report.MeanAbsErrorHr = &mean
	}
	return report
}

// Replay recomputes the prediction as it would have looked at at, or at
// every exam when at is nil.
func (s *Service) Replay(ctx context.Context, id string, at *time.Time) (ReplayReport, error) {
	snap, err := s.load(ctx, id, true)
	if err != nil {
		return ReplayReport{}, err
	}
	return BuildReplayReport(snap.encounter, snap.events, snap.settings, at), nil
}

// Overlays returns chart data for the encounter: reference curves plus the
// patient's dilation and station series and timing markers.
func (s *Service) Overlays(ctx context.Context, id string, opts types.OverlayOptions) (types.Overlays, error) {
	snap, err := s.load(ctx, id, true)
	if err != nil {
		return types.Overlays{}, err
	}
	return labor.Overlays(snap.events, snap.settings, opts), nil
}

// Summary renders the plain-text logbook of an encounter in the configured
// display time zone.
func (s *Service) Summary(ctx context.Context, id string) (string, error) {
	snap, err := s.load(ctx, id, false)
	if err != nil {
		return "", err
	}
	return labor.Summary(snap.encounter, snap.events, s.loc), nil
}

// ReferenceCurve validates a profile and generates its curve.
func (s *Service) ReferenceCurve(p types.CurveProfile) (types.ReferenceCurve, error) {
	if err := p.Validate(); err != nil {
		return types.ReferenceCurve{}, err
	}
	return labor.ReferenceCurve(p), nil
}

// GetSettings returns the current settings (defaults when none are stored).
func (s *Service) GetSettings(ctx context.Context) (types.Settings, error) {
	return s.repos.Settings.Get(ctx)
}

// UpdateSettings validates and stores settings.
func (s *Service) UpdateSettings(ctx context.Context, in types.Settings) (types.Settings, error) {
	settings, err := types.NewSettings(in)
	if err != nil {
		return types.Settings{}, err
	}
	if err := s.repos.Settings.Put(ctx, settings); err != nil {
		return types.Settings{}, err
	}
	s.logger.InfoContext(ctx, "settings updated",
		"active_threshold_cm", settings.ActiveThresholdCm,
	)
	return settings, nil
}

// ResetSettings discards stored settings and returns the defaults.
func (s *Service) ResetSettings(ctx context.Context) (types.Settings, error) {
	if err := s.repos.Settings.Reset(ctx); err != nil {
		return types.Settings{}, err
	}
	return types.DefaultSettings(), nil
}
