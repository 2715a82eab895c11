package labor

import (
	"math"
	"strconv"
	"time"
)

// clamp bounds n to [lo, hi].
func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

// hoursBetween returns the signed elapsed hours from t1 to t2.
func hoursBetween(t1, t2 time.Time) float64 {
	return t2.Sub(t1).Hours()
}

// formatNum renders a number with the shortest exact representation
// (6 rather than 6.0, 0.25 rather than 0.250).
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
