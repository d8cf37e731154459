package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-sandbox/config"
)

func TestSyntheticFeedDeterministic(t *testing.T) {
	cfg := config.Default().Replay
	cfg.Bars = 50

	a := SyntheticFeed("NIFTY", cfg)
	b := SyntheticFeed("NIFTY", cfg)
	c := SyntheticFeed("BANKNIFTY", cfg)

	assert.Equal(t, a.Bars, b.Bars)
	assert.NotEqual(t, a.Bars[10].Close, c.Bars[10].Close)
}

func TestSyntheticFeedShape(t *testing.T) {
	cfg := config.Default().Replay
	cfg.Bars = 40
	feed := SyntheticFeed("NIFTY", cfg)

	require.Len(t, feed.Bars, 40)
	require.Len(t, feed.Snapshots, 40)
	assert.Equal(t, cfg.StartPrice, feed.Bars[0].Open)
	for i, bar := range feed.Bars {
		assert.LessOrEqual(t, bar.Low, bar.Open, "bar %d", i)
		assert.LessOrEqual(t, bar.Low, bar.Close, "bar %d", i)
		assert.GreaterOrEqual(t, bar.High, bar.Open, "bar %d", i)
		assert.GreaterOrEqual(t, bar.High, bar.Close, "bar %d", i)
		assert.Positive(t, bar.Volume)
		if i > 0 {
			assert.Equal(t, feed.Bars[i-1].Close, bar.Open)
			assert.Equal(t, cfg.IntervalSecs, bar.Time-feed.Bars[i-1].Time)
		}

		snap := feed.Snapshots[i]
		assert.Equal(t, bar.Close, snap.SpotPrice)
		assert.Equal(t, bar.Timestamp(), snap.Time)
		assert.Positive(t, snap.BidAskSpread)
		assert.Len(t, snap.IVHistory, replayIVHistory)
		require.Len(t, snap.OptionChain, replayStrikeGrid)
		for _, q := range snap.OptionChain {
			assert.Equal(t, cfg.LotSize, q.LotSize)
			assert.InDelta(t, replayExpiryDays, q.DaysToExpiry(snap.Time), 1e-9)
			assert.Positive(t, q.CallMid+q.PutMid)
		}
	}
	assert.Zero(t, feed.Snapshots[0].CurrentATR)
	assert.Positive(t, feed.Snapshots[5].CurrentATR)
}
