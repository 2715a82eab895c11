package labor

import "laborcurve/internal/types"

// Horizons at which delivery probabilities are reported, in hours.
var Horizons = [3]float64{2, 4, 8}

// DeliveryProbability evaluates the piecewise-linear CDF anchored at 0.05,
// 0.5 and 0.95 on the low, mid and high hours of iv.
func DeliveryProbability(iv types.Interval, t float64) float64 {
	var p float64
	switch {
	case t <= iv.LowHr:
		p = 0.05
	case t >= iv.HighHr:
		p = 0.95
	case t <= iv.MidHr:
		p = 0.05 + 0.45*(t-iv.LowHr)/max(1e-6, iv.MidHr-iv.LowHr)
	default:
		p = 0.5 + 0.45*(t-iv.MidHr)/max(1e-6, iv.HighHr-iv.MidHr)
	}
	return clamp(p, 0, 1)
}

func horizonProbabilities(iv types.Interval) types.HorizonProbabilities {
	return types.HorizonProbabilities{
		By2: DeliveryProbability(iv, Horizons[0]),
		By4: DeliveryProbability(iv, Horizons[1]),
		By8: DeliveryProbability(iv, Horizons[2]),
	}
}
