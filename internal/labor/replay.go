package labor

import (
	"math"
	"time"

	"laborcurve/internal/types"
)

// Replay predicts as if it were at, using only events recorded at or before
// at. When the encounter has an outcome time the point also carries the
// actual hours to delivery and the signed error (predicted mid minus
// actual); a positive error means the prediction was too slow.
func Replay(enc *types.Encounter, events []types.Event, settings types.Settings, at time.Time) types.ReplayPoint {
	prefix := make([]types.Event, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.After(at) {
			prefix = append(prefix, e)
		}
	}

	point := types.ReplayPoint{
		At:         at,
		EventCount: len(prefix),
		Prediction: Predict(enc, prefix, settings, at),
	}

	if enc == nil || enc.OutcomeAt == nil || point.Prediction.TimeToDelivery == nil {
		return point
	}

	actual := hoursBetween(at, *enc.OutcomeAt)
	errHr := point.Prediction.TimeToDelivery.MidHr - actual
	point.ActualHr = &actual
	point.ErrorHr = &errHr
	switch {
	case errHr > 0:
		point.Verdict = types.VerdictOverestimated
	case errHr < 0:
		point.Verdict = types.VerdictUnderestimated
	default:
		point.Verdict = types.VerdictExact
	}
	return point
}

// ReplayAll replays at the timestamp of every exam, oldest first. Exams
// sharing a timestamp produce one point.
func ReplayAll(enc *types.Encounter, events []types.Event, settings types.Settings) []types.ReplayPoint {
	sorted := SortEvents(events)

	var points []types.ReplayPoint
	var last time.Time
	for _, e := range sorted {
		if e.Kind() != types.EventKindExam {
			continue
		}
		if len(points) > 0 && e.Timestamp.Equal(last) {
			continue
		}
		last = e.Timestamp
		points = append(points, Replay(enc, sorted, settings, e.Timestamp))
	}
	return points
}

// MeanAbsError averages |error| over the points that have one. ok is false
// when none do.
func MeanAbsError(points []types.ReplayPoint) (mean float64, n int, ok bool) {
	var sum float64
	for _, p := range points {
		if p.ErrorHr == nil {
			continue
		}
		sum += math.Abs(*p.ErrorHr)
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return sum / float64(n), n, true
}
