package market

// RegimeState labels the current volatility/liquidity conditions.
type RegimeState struct {
	HighVol  bool
	Illiquid bool
}

// RegimeInput 是一次分类所需的读数。
type RegimeInput struct {
	CurrentATR float64
	LongRunATR float64
	Spread     float64
	TickSize   float64
}

// RegimeClassifier detects market regime based on ATR expansion and spread.
type RegimeClassifier struct {
	volHighThreshold         float64
	liquiditySpreadThreshold float64
}

// NewRegimeClassifier creates a classifier. volHighThreshold is the ATR
// multiple over the long-run baseline; liquiditySpreadThreshold is in ticks.
func NewRegimeClassifier(volHighThreshold, liquiditySpreadThreshold float64) *RegimeClassifier {
	return &RegimeClassifier{
		volHighThreshold:         volHighThreshold,
		liquiditySpreadThreshold: liquiditySpreadThreshold,
	}
}

// Classify never fails. The volatility ratio is CurrentATR / LongRunATR,
// measured against the long-run baseline only; the current ATR is not folded
// into the denominator. A long-run ATR <= 0 means no baseline has been
// established yet, in which case HighVol is reported false rather than
// dividing by zero. A non-positive tick size disables the illiquid flag.
func (r *RegimeClassifier) Classify(in RegimeInput) RegimeState {
	var st RegimeState
	if in.LongRunATR > 0 {
		st.HighVol = in.CurrentATR/in.LongRunATR > r.volHighThreshold
	}
	if in.TickSize > 0 {
		st.Illiquid = in.Spread/in.TickSize > r.liquiditySpreadThreshold
	}
	return st
}

// LongRunATR 计算长期 ATR 基线：最近 window 根 bar 每个端点上 ATR(period) 的均值。
// 历史不足 period+window 根时返回 0（尚无基线）。
func LongRunATR(bars []Bar, period, window int) float64 {
	if period <= 0 || window <= 0 || len(bars) < period+window {
		return 0
	}
	highs, lows, closes := Highs(bars), Lows(bars), Closes(bars)
	readings := make([]float64, 0, window)
	for end := len(bars) - window + 1; end <= len(bars); end++ {
		readings = append(readings, ATR(highs[:end], lows[:end], closes[:end], period))
	}
	return mean(readings)
}
