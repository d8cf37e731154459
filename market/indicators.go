package market

import "math"

// rsiEpsilon replaces a zero average loss so RSI saturates near 100 instead
// of dividing by zero.
const rsiEpsilon = 1e-6

// IndicatorSnapshot holds the readings derived from one bar window.
type IndicatorSnapshot struct {
	ATR  float64
	RSI  float64
	VWAP float64
}

// ATR returns the simple average of the last period true ranges. With fewer
// than period true ranges it averages what is available, and returns 0 when
// there are none. Inputs are expected to be aligned oldest->newest.
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if len(highs) < n {
		n = len(highs)
	}
	if len(lows) < n {
		n = len(lows)
	}
	if n < 2 {
		return 0
	}
	trs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		trs = append(trs, trueRange(highs[i], lows[i], closes[i-1]))
	}
	if period <= 0 || len(trs) < period {
		return mean(trs)
	}
	return mean(trs[len(trs)-period:])
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// RSI computes the relative strength index from the trailing period close
// differences. Short history (fewer than period+1 closes) yields the neutral 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss <= 0 {
		avgLoss = rsiEpsilon
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	return clamp(rsi, 0, 100)
}

// VWAP is the volume weighted typical price of the window. Zero total volume
// falls back to the last close; an empty window returns 0.
func VWAP(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var pv, vol float64
	for _, b := range bars {
		pv += b.Typical() * b.Volume
		vol += b.Volume
	}
	if vol <= 0 {
		return bars[len(bars)-1].Close
	}
	return pv / vol
}

// ComputeSnapshot derives ATR/RSI over the whole history and VWAP over the
// trailing vwapLookback bars (all bars when lookback <= 0).
func ComputeSnapshot(bars []Bar, atrPeriod, rsiPeriod, vwapLookback int) IndicatorSnapshot {
	window := bars
	if vwapLookback > 0 && len(bars) > vwapLookback {
		window = bars[len(bars)-vwapLookback:]
	}
	return IndicatorSnapshot{
		ATR:  ATR(Highs(bars), Lows(bars), Closes(bars), atrPeriod),
		RSI:  RSI(Closes(bars), rsiPeriod),
		VWAP: VWAP(window),
	}
}

// MaxHigh 返回 bars 中最高价；空切片返回 -Inf。
func MaxHigh(bars []Bar) float64 {
	m := math.Inf(-1)
	for _, b := range bars {
		m = math.Max(m, b.High)
	}
	return m
}

// MinLow 返回 bars 中最低价；空切片返回 +Inf。
func MinLow(bars []Bar) float64 {
	m := math.Inf(1)
	for _, b := range bars {
		m = math.Min(m, b.Low)
	}
	return m
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
