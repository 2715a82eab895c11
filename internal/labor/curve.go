package labor

import (
	"math"

	"laborcurve/internal/types"
)

// Reference curve shape constants.
const (
	curveStepsPerHour = 12 // 5-minute resolution
	curveStartCm      = 0.8
	curveSteepness    = 1.15
	curveInflection   = 0.45 // fraction of total duration
)

type slopePair struct {
	early float64
	late  float64
}

var baselineSlopes = map[types.Parity]slopePair{
	types.ParityNullip: {early: 0.30, late: 1.05},
	types.ParityMultip: {early: 0.45, late: 1.55},
}

// ReferenceCurve produces the expected dilation curve for a population
// profile over [0, DurationHr] at 5-minute steps.
//
// The effective slope at t is a logistic blend of the early and late slopes
// and dilation is taken as 0.8 + slope*t, clamped to [0, 10]. That is a
// shape approximation rather than an integral of the slope; overlays depend
// on this exact shape. The result is forward-filled so it never decreases.
//
// Condition adjustments also accumulate Widen, which callers use for
// uncertainty bands; it does not change the points. ActiveThresholdCm is
// carried on the profile but does not influence the shape.
func ReferenceCurve(p types.CurveProfile) types.ReferenceCurve {
	slopes, ok := baselineSlopes[p.Parity]
	if !ok {
		slopes = baselineSlopes[types.ParityNullip]
	}
	early, late := slopes.early, slopes.late
	widen := 1.0

	if p.Induction {
		early *= 0.95
		late *= 0.95
		widen *= 1.08
	}
	if p.Epidural {
		late *= 0.98
		widen *= 1.05
	}
	if p.OP {
		late *= 0.88
		widen *= 1.18
	}

	x0 := p.DurationHr * curveInflection
	steps := p.DurationHr * curveStepsPerHour

	var points []types.CurvePoint
	if steps >= 0 {
		points = make([]types.CurvePoint, 0, int(steps)+1)
	}
	for i := 0; float64(i) <= steps; i++ {
		t := float64(i) / curveStepsPerHour
		f := 1 / (1 + math.Exp(-curveSteepness*(t-x0)))
		slope := early*(1-f) + late*f
		points = append(points, types.CurvePoint{
			Hour: t,
			Cm:   clamp(curveStartCm+slope*t, types.MinDilationCm, types.MaxDilationCm),
		})
	}

	for i := 1; i < len(points); i++ {
		if points[i].Cm < points[i-1].Cm {
			points[i].Cm = points[i-1].Cm
		}
	}

	return types.ReferenceCurve{Points: points, Widen: widen}
}
