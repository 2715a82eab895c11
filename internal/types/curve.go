package types

import "math"

// CurveProfile selects a population reference curve.
type CurveProfile struct {
	Parity            Parity  `json:"parity"`
	DurationHr        float64 `json:"duration_hr"`
	ActiveThresholdCm float64 `json:"active_threshold_cm"`
	Induction         bool    `json:"induction"`
	Epidural          bool    `json:"epidural"`
	OP                bool    `json:"op"`
}

// Validate rejects durations that are non-positive, non-finite or longer
// than MaxCurveDurationHr.
func (p CurveProfile) Validate() error {
	if !p.Parity.IsValid() {
		return NewAppError(ErrCodeValidationCurveProfile, "parity must be nullip or multip", nil)
	}
	if math.IsNaN(p.DurationHr) || p.DurationHr <= 0 || p.DurationHr > MaxCurveDurationHr {
		return NewAppErrorWithDetails(ErrCodeValidationCurveProfile,
			"duration_hr must be greater than 0 and at most 72", nil,
			map[string]any{"duration_hr": p.DurationHr})
	}
	if p.ActiveThresholdCm < 0 || p.ActiveThresholdCm > MaxDilationCm {
		return NewAppError(ErrCodeValidationCurveProfile, "active_threshold_cm must be between 0 and 10", nil)
	}
	return nil
}

// CurvePoint is one (elapsed hours, dilation) sample.
type CurvePoint struct {
	Hour float64 `json:"hour"`
	Cm   float64 `json:"cm"`
}

// ReferenceCurve is a non-decreasing dilation curve sampled every five
// minutes. Widen is the uncertainty factor for band rendering; it is not
// applied to the points.
type ReferenceCurve struct {
	Points []CurvePoint `json:"points"`
	Widen  float64      `json:"widen"`
}

// NamedCurve is a reference curve labeled for overlay display.
type NamedCurve struct {
	Name  string         `json:"name"`
	Curve ReferenceCurve `json:"curve"`
}

// SeriesPoint is an observed measurement relative to the first event.
type SeriesPoint struct {
	Hour  float64 `json:"hour"`
	Value float64 `json:"value"`
}

// Marker is a labeled instant on the overlay timeline.
type Marker struct {
	Hour  float64 `json:"hour"`
	Label string  `json:"label"`
}

// OverlayOptions selects which population curves to build.
type OverlayOptions struct {
	Nullip    bool
	Multip    bool
	Induction bool
	Epidural  bool
	OP        bool
}

// Overlays is chart data for one encounter: reference curves plus the
// patient's own dilation and station series.
type Overlays struct {
	DurationHr float64       `json:"duration_hr"`
	Curves     []NamedCurve  `json:"curves"`
	Dilation   []SeriesPoint `json:"dilation"`
	Station    []SeriesPoint `json:"station"`
	Markers    []Marker      `json:"markers"`
}
