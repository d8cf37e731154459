package market

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBars(r *rand.Rand, n int) []Bar {
	bars := make([]Bar, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += r.NormFloat64()
		high := math.Max(open, price) + r.Float64()
		low := math.Min(open, price) - r.Float64()
		bars = append(bars, Bar{Time: int64(i * 60), Open: open, High: high, Low: low, Close: price, Volume: r.Float64() * 1000})
	}
	return bars
}

func TestATR(t *testing.T) {
	highs := []float64{10, 12, 13, 12}
	lows := []float64{9, 10, 11, 10}
	closes := []float64{9.5, 11, 12.5, 11}
	// TRs: max(2, 2.5, 0.5)=2.5; max(2, 2, 0)=2; max(2, 0.5, 2.5)=2.5
	assert.InDelta(t, (2.5+2+2.5)/3, ATR(highs, lows, closes, 14), 1e-12, "short history averages what exists")
	assert.InDelta(t, (2+2.5)/2, ATR(highs, lows, closes, 2), 1e-12)
	assert.Equal(t, 0.0, ATR([]float64{10}, []float64{9}, []float64{9.5}, 14))
	assert.Equal(t, 0.0, ATR(nil, nil, nil, 14))
}

func TestATRZeroOnlyForFlatRanges(t *testing.T) {
	flat := []float64{100, 100, 100, 100}
	assert.Equal(t, 0.0, ATR(flat, flat, flat, 3))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		bars := randomBars(r, 2+r.Intn(60))
		got := ATR(Highs(bars), Lows(bars), Closes(bars), 1+r.Intn(20))
		require.GreaterOrEqual(t, got, 0.0)
		require.Greater(t, got, 0.0, "random bars have non-zero ranges")
	}
}

func TestRSIBounds(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		bars := randomBars(r, r.Intn(80))
		got := RSI(Closes(bars), 1+r.Intn(20))
		require.GreaterOrEqual(t, got, 0.0)
		require.LessOrEqual(t, got, 100.0)
	}
}

func TestRSINeutralOnShortHistory(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 50.0, RSI(closes, 5), "len == period")
	assert.Equal(t, 50.0, RSI(closes, 14))
	assert.Equal(t, 50.0, RSI(nil, 14))
	assert.NotEqual(t, 50.0, RSI(closes, 4))
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 20)
	down := make([]float64, 20)
	for i := range up {
		up[i] = float64(100 + i)
		down[i] = float64(100 - i)
	}
	assert.Greater(t, RSI(up, 14), 99.99, "zero loss saturates near 100")
	assert.Equal(t, 0.0, RSI(down, 14))

	flat := []float64{5, 5, 5, 5, 5}
	assert.Equal(t, 0.0, RSI(flat, 3), "no gains and epsilon loss")
}

func TestRSIKnownValue(t *testing.T) {
	closes := []float64{10, 11, 10, 12}
	// gains 1+2=3, losses 1 over 3 periods -> rs 3 -> 75
	assert.InDelta(t, 75.0, RSI(closes, 3), 1e-9)
}

func TestVWAP(t *testing.T) {
	bars := []Bar{
		{High: 11, Low: 9, Close: 10, Volume: 100},
		{High: 22, Low: 18, Close: 20, Volume: 300},
	}
	assert.InDelta(t, (10*100+20*300)/400.0, VWAP(bars), 1e-9)
}

func TestVWAPZeroVolumeFallsBackToLastClose(t *testing.T) {
	bars := []Bar{
		{High: 11, Low: 9, Close: 10},
		{High: 22, Low: 18, Close: 21},
	}
	assert.Equal(t, 21.0, VWAP(bars))
	assert.Equal(t, 0.0, VWAP(nil))
}

func TestComputeSnapshot(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	bars := randomBars(r, 100)
	snap := ComputeSnapshot(bars, 14, 14, 60)
	assert.Equal(t, VWAP(bars[40:]), snap.VWAP)
	assert.Equal(t, RSI(Closes(bars), 14), snap.RSI)
	assert.Equal(t, ATR(Highs(bars), Lows(bars), Closes(bars), 14), snap.ATR)
}

func TestMaxHighMinLow(t *testing.T) {
	bars := []Bar{{High: 3, Low: 1}, {High: 5, Low: 2}, {High: 4, Low: 0.5}}
	assert.Equal(t, 5.0, MaxHigh(bars))
	assert.Equal(t, 0.5, MinLow(bars))
	assert.True(t, math.IsInf(MaxHigh(nil), -1))
}
