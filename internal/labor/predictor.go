// Package labor is the prediction engine: the population reference curve
// generator and the ETA predictor that turns an encounter's event log into
// a phase, time-to-10cm and time-to-delivery intervals, and horizon
// probabilities.
//
// Everything here is pure and synchronous. The reference instant is always
// passed in; nothing reads the wall clock.
package labor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"laborcurve/internal/types"
)

// Predictor constants.
const (
	// MinRate floors dilation rates before dividing distance by rate.
	MinRate = 0.15

	// MinVelocityWindow floors the elapsed time between the last two exams
	// when computing observed velocity.
	MinVelocityWindow = 0.25

	velocityMin   = 0.1
	velocityMax   = 4.0
	velocityBlend = 0.35
)

// NoDataMessage is the single explanation returned when no exam exists.
const NoDataMessage = "No SVE entered yet. Add at least one cervical exam."

// latentPriors is the latent-phase duration prior in hours.
var latentPriors = map[types.Parity]types.RateRange{
	types.ParityMultip: {Low: 1.5, Mid: 3.0, High: 6.0},
	types.ParityNullip: {Low: 2.5, Mid: 4.5, High: 8.0},
}

// SortEvents returns a copy of events ordered by timestamp. Ties keep their
// input order.
func SortEvents(events []types.Event) []types.Event {
	sorted := make([]types.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// Predict estimates time to full dilation and to delivery from the event log
// as of at. It never mutates its inputs. settings is assumed to have been
// validated by types.NewSettings.
//
// The result depends on at through the recent-oxytocin flag: the same log
// can yield different rates depending on when it is evaluated.
func Predict(enc *types.Encounter, events []types.Event, settings types.Settings, at time.Time) types.PredictionResult {
	sorted := SortEvents(events)
	flags, exams := scan(enc, sorted, at)

	if len(exams) == 0 {
		return types.PredictionResult{
			Phase:   types.PhaseNoData,
			At:      at,
			Explain: []string{NoDataMessage},
			Flags:   flags,
		}
	}

	parity := enc.EffectiveParity()
	threshold := settings.ActiveThresholdCm
	latest := exams[len(exams)-1]
	cm := latest.cm

	phase := classify(cm, threshold)

	var explain []string

	// Adjusters, in a fixed order.
	rates := settings.Rates.For(parity)
	widen := 1.0
	adjusters := []struct {
		on   bool
		adj  types.Adjuster
		note string
	}{
		{flags.Induction, settings.Adjusters.Induction, "Induction adjustment applied"},
		{flags.OP, settings.Adjusters.OP, "OP/OT adjustment applied"},
		{flags.Epidural, settings.Adjusters.Epidural, "Epidural adjustment applied"},
		{flags.OxytocinRecent, settings.Adjusters.Oxytocin, "Recent oxytocin titration adjustment applied"},
	}
	for _, a := range adjusters {
		if !a.on {
			continue
		}
		rates = rates.Scale(a.adj.RateMult)
		widen *= a.adj.Widen
		explain = append(explain, a.note)
	}

	// Observed velocity from the last two exams.
	var velocity *float64
	if len(exams) >= 2 {
		prev := exams[len(exams)-2]
		dt := math.Max(MinVelocityWindow, hoursBetween(prev.at, latest.at))
		v := (latest.cm - prev.cm) / dt
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			velocity = &v
		}
	}
	if velocity != nil {
		v := *velocity
		explain = append(explain, fmt.Sprintf("Recent dilation slope: %.2f cm/hr", v))
		if v > velocityMin && v < velocityMax {
			rates.Mid = rates.Mid*(1-velocityBlend) + v*velocityBlend
			rates.Low = math.Min(rates.Low, rates.Mid*0.7)
			rates.High = math.Max(rates.High, rates.Mid*1.3)
		}
	} else {
		explain = append(explain, "Recent dilation slope: insufficient data")
	}

	rates.Low /= widen
	rates.High *= widen

	var eta10 types.Interval
	switch phase {
	case types.PhaseLatent:
		prior := latentPriors[parity]
		closeness := clamp((threshold-cm)/threshold, 0, 1)
		latent := prior.Scale(0.6 + 0.6*closeness)
		eta10 = latent.Hours().Add(traversal(math.Max(0, types.MaxDilationCm-threshold), rates))
		explain = append(explain, fmt.Sprintf("Phase: latent (<%s cm)", formatNum(threshold)))
	case types.PhaseActive:
		eta10 = traversal(math.Max(0, types.MaxDilationCm-cm), rates)
		explain = append(explain, fmt.Sprintf("Phase: active (≥%s cm)", formatNum(threshold)))
	default:
		explain = append(explain, "Phase: second stage (10 cm)")
	}

	stage := settings.SecondStage.For(parity, flags.Epidural)
	delivery := stage.Hours()
	if phase != types.PhaseSecond {
		delivery = eta10.Add(delivery)
	}

	probs := horizonProbabilities(delivery)
	basedOn := latest.at
	latestCm := cm
	finalRates := rates

	return types.PredictionResult{
		Phase:              phase,
		At:                 at,
		BasedOn:            &basedOn,
		LatestDilationCm:   &latestCm,
		TimeToFullDilation: &eta10,
		TimeToDelivery:     &delivery,
		Probabilities:      &probs,
		Explain:            explain,
		Flags:              flags,
		ObservedVelocity:   velocity,
		RateBounds:         &finalRates,
	}
}

// classify maps the latest dilation to a phase. The threshold is inclusive
// on the active side.
func classify(cm, threshold float64) types.Phase {
	switch {
	case cm >= types.MaxDilationCm:
		return types.PhaseSecond
	case cm >= threshold:
		return types.PhaseActive
	default:
		return types.PhaseLatent
	}
}

// traversal converts a distance in cm into hours. The fastest rate gives the
// low time bound.
func traversal(cm float64, rates types.RateRange) types.Interval {
	return types.Interval{
		LowHr:  cm / math.Max(MinRate, rates.High),
		MidHr:  cm / math.Max(MinRate, rates.Mid),
		HighHr: cm / math.Max(MinRate, rates.Low),
	}
}
