package types

import (
	"fmt"
	"math"
)

// RateRange is a low/mid/high triple. For dilation rates the unit is cm/h;
// for second-stage durations it is hours.
type RateRange struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Scale multiplies every bound by f.
func (r RateRange) Scale(f float64) RateRange {
	return RateRange{Low: r.Low * f, Mid: r.Mid * f, High: r.High * f}
}

// Hours reads the triple as an hours interval.
func (r RateRange) Hours() Interval {
	return Interval{LowHr: r.Low, MidHr: r.Mid, HighHr: r.High}
}

func (r RateRange) validate(field string, allowZero bool) error {
	for _, v := range []float64{r.Low, r.Mid, r.High} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidSettings(field, "must be finite")
		}
		if v < 0 || (!allowZero && v == 0) {
			return invalidSettings(field, "must be positive")
		}
	}
	if r.Low > r.Mid || r.Mid > r.High {
		return invalidSettings(field, "must satisfy low <= mid <= high")
	}
	return nil
}

// ParityRates holds the base dilation rate triple per parity.
type ParityRates struct {
	Nullip RateRange `json:"nullip"`
	Multip RateRange `json:"multip"`
}

// For returns the triple for p. Unknown parity falls back to nullip.
func (r ParityRates) For(p Parity) RateRange {
	if p == ParityMultip {
		return r.Multip
	}
	return r.Nullip
}

// SecondStageTable holds second-stage durations keyed by parity and
// epidural presence.
type SecondStageTable struct {
	NullipNoEpidural RateRange `json:"nullip_noEpi"`
	NullipEpidural   RateRange `json:"nullip_epi"`
	MultipNoEpidural RateRange `json:"multip_noEpi"`
	MultipEpidural   RateRange `json:"multip_epi"`
}

// For selects the duration triple.
func (t SecondStageTable) For(p Parity, epidural bool) RateRange {
	switch {
	case p == ParityMultip && epidural:
		return t.MultipEpidural
	case p == ParityMultip:
		return t.MultipNoEpidural
	case epidural:
		return t.NullipEpidural
	default:
		return t.NullipNoEpidural
	}
}

// Adjuster scales the dilation rate and widens the uncertainty interval
// when its condition is present.
type Adjuster struct {
	RateMult float64 `json:"rate_mult"`
	Widen    float64 `json:"widen"`
}

func (a Adjuster) validate(field string) error {
	if math.IsNaN(a.RateMult) || a.RateMult <= 0 || math.IsInf(a.RateMult, 0) {
		return invalidSettings(field+".rate_mult", "must be a positive number")
	}
	if math.IsNaN(a.Widen) || a.Widen < 1.0 || math.IsInf(a.Widen, 0) {
		return invalidSettings(field+".widen", "must be >= 1.0")
	}
	return nil
}

// Adjusters groups the four clinical rate adjusters.
type Adjusters struct {
	Induction Adjuster `json:"induction"`
	Epidural  Adjuster `json:"epidural"`
	OP        Adjuster `json:"op"`
	Oxytocin  Adjuster `json:"oxytocin"`
}

// Settings is the parameter bundle consumed by the predictor.
type Settings struct {
	ActiveThresholdCm float64          `json:"active_threshold_cm"`
	Rates             ParityRates      `json:"rates"`
	SecondStage       SecondStageTable `json:"second_stage"`
	Adjusters         Adjusters        `json:"adjusters"`
}

// DefaultActiveThresholdCm is the default latent/active boundary.
const DefaultActiveThresholdCm = 6.0

// DefaultSettings returns the hand-set priors.
func DefaultSettings() Settings {
	return Settings{
		ActiveThresholdCm: DefaultActiveThresholdCm,
		Rates: ParityRates{
			Nullip: RateRange{Low: 0.5, Mid: 1.0, High: 1.5},
			Multip: RateRange{Low: 1.0, Mid: 1.5, High: 2.0},
		},
		SecondStage: SecondStageTable{
			NullipNoEpidural: RateRange{Low: 0.5, Mid: 1.0, High: 2.0},
			NullipEpidural:   RateRange{Low: 1.0, Mid: 1.5, High: 3.0},
			MultipNoEpidural: RateRange{Low: 0.25, Mid: 0.5, High: 1.5},
			MultipEpidural:   RateRange{Low: 0.5, Mid: 1.0, High: 2.0},
		},
		Adjusters: Adjusters{
			Induction: Adjuster{RateMult: 0.9, Widen: 1.15},
			Epidural:  Adjuster{RateMult: 0.95, Widen: 1.10},
			OP:        Adjuster{RateMult: 0.85, Widen: 1.25},
			Oxytocin:  Adjuster{RateMult: 1.05, Widen: 1.05},
		},
	}
}

// NewSettings validates s and returns it. Settings that reach the predictor
// have always passed through here or through DefaultSettings.
func NewSettings(s Settings) (Settings, error) {
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate enforces low <= mid <= high on every triple and widen >= 1.
func (s Settings) Validate() error {
	if math.IsNaN(s.ActiveThresholdCm) || s.ActiveThresholdCm <= 0 || s.ActiveThresholdCm >= MaxDilationCm {
		return invalidSettings("active_threshold_cm", "must be between 0 and 10 (exclusive)")
	}
	if err := s.Rates.Nullip.validate("rates.nullip", false); err != nil {
		return err
	}
	if err := s.Rates.Multip.validate("rates.multip", false); err != nil {
		return err
	}
	stages := []struct {
		name string
		r    RateRange
	}{
		{"second_stage.nullip_noEpi", s.SecondStage.NullipNoEpidural},
		{"second_stage.nullip_epi", s.SecondStage.NullipEpidural},
		{"second_stage.multip_noEpi", s.SecondStage.MultipNoEpidural},
		{"second_stage.multip_epi", s.SecondStage.MultipEpidural},
	}
	for _, st := range stages {
		if err := st.r.validate(st.name, true); err != nil {
			return err
		}
	}
	adjusters := []struct {
		name string
		a    Adjuster
	}{
		{"adjusters.induction", s.Adjusters.Induction},
		{"adjusters.epidural", s.Adjusters.Epidural},
		{"adjusters.op", s.Adjusters.OP},
		{"adjusters.oxytocin", s.Adjusters.Oxytocin},
	}
	for _, adj := range adjusters {
		if err := adj.a.validate(adj.name); err != nil {
			return err
		}
	}
	return nil
}

func invalidSettings(field, msg string) *AppError {
	return NewAppErrorWithDetails(ErrCodeValidationSettings,
		fmt.Sprintf("%s %s", field, msg), nil,
		map[string]any{"field": field})
}
