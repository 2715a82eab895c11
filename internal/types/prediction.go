package types

import "time"

// Interval is an hours estimate with uncertainty bounds.
type Interval struct {
	LowHr  float64 `json:"low_hr"`
	MidHr  float64 `json:"mid_hr"`
	HighHr float64 `json:"high_hr"`
}

// Add sums two intervals bound by bound.
func (i Interval) Add(o Interval) Interval {
	return Interval{LowHr: i.LowHr + o.LowHr, MidHr: i.MidHr + o.MidHr, HighHr: i.HighHr + o.HighHr}
}

// HorizonProbabilities is P(delivery within 2, 4, 8 hours).
type HorizonProbabilities struct {
	By2 float64 `json:"by_2h"`
	By4 float64 `json:"by_4h"`
	By8 float64 `json:"by_8h"`
}

// PredictionFlags is the resolved condition set used by a prediction.
type PredictionFlags struct {
	Epidural       bool `json:"epidural"`
	Induction      bool `json:"induction"`
	OP             bool `json:"op"`
	OxytocinRecent bool `json:"oxytocin_recent"`
}

// PredictionResult is derived on every call and never stored. The interval
// and probability fields are nil when Phase is no-data.
type PredictionResult struct {
	Phase              Phase                 `json:"phase"`
	At                 time.Time             `json:"at"`
	BasedOn            *time.Time            `json:"based_on,omitempty"`
	LatestDilationCm   *float64              `json:"latest_cm,omitempty"`
	TimeToFullDilation *Interval             `json:"eta10"`
	TimeToDelivery     *Interval             `json:"eta_delivery"`
	Probabilities      *HorizonProbabilities `json:"probabilities"`
	Explain            []string              `json:"explain"`
	Flags              PredictionFlags       `json:"flags"`
	ObservedVelocity   *float64              `json:"observed_velocity_cm_hr,omitempty"`
	RateBounds         *RateRange            `json:"rate_bounds,omitempty"`
}

// Verdict labels the direction of a replay error.
type Verdict string

const (
	VerdictOverestimated  Verdict = "overestimated"
	VerdictUnderestimated Verdict = "underestimated"
	VerdictExact          Verdict = "exact"
)

// ReplayPoint is a prediction made as of At using only the events known at
// that instant, optionally compared against the recorded outcome.
type ReplayPoint struct {
	At         time.Time        `json:"at"`
	EventCount int              `json:"event_count"`
	Prediction PredictionResult `json:"prediction"`
	ActualHr   *float64         `json:"actual_hr,omitempty"`
	ErrorHr    *float64         `json:"error_hr,omitempty"`
	Verdict    Verdict          `json:"verdict,omitempty"`
}
