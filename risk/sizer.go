package risk

import "math"

// Epsilon 止损距离下限，避免除零。
const Epsilon = 1e-6

// Size converts an equity/risk budget into an integer quantity:
// floor(equity*riskPct / max(stopDistance, Epsilon)), floored at minQty.
// minQty below 1 is treated as 1 so the result is never zero or negative.
func Size(equity, riskPct, stopDistance float64, minQty int64) int64 {
	if minQty < 1 {
		minQty = 1
	}
	riskAmount := equity * riskPct
	qty := floorQty(riskAmount / math.Max(stopDistance, Epsilon))
	if qty < minQty {
		return minQty
	}
	return qty
}

// SizeStraddle sizes a two-leg position from the risk budget divided by the
// combined premium of one lot. ok is false when premium*lotSize is not
// positive; the caller should skip the trade.
func SizeStraddle(equity, maxRiskPct, premium float64, lotSize, minQty int64) (qty int64, ok bool) {
	cost := premium * float64(lotSize)
	if cost <= 0 || math.IsNaN(cost) {
		return 0, false
	}
	if minQty < 1 {
		minQty = 1
	}
	qty = floorQty(equity * maxRiskPct / cost)
	if qty < minQty {
		qty = minQty
	}
	return qty, true
}

// floorQty floors v into an int64, clamping NaN/negatives to 0 and overflow
// to MaxInt64.
func floorQty(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	f := math.Floor(v)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
