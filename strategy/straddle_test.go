package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-sandbox/execution"
	"strategy-sandbox/market"
	"strategy-sandbox/order"
	"strategy-sandbox/risk"
)

var straddleNow = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func chainAt(now time.Time) []market.OptionQuote {
	in10 := now.Add(10 * 24 * time.Hour).Unix()
	in30 := now.Add(30 * 24 * time.Hour).Unix()
	return []market.OptionQuote{
		{Strike: 95, Expiry: in10, CallMid: 6, PutMid: 1, LotSize: 50},
		{Strike: 100, Expiry: in10, CallMid: 2, PutMid: 3, LotSize: 50},
		{Strike: 105, Expiry: in10, CallMid: 1, PutMid: 6, LotSize: 50},
		{Strike: 100.5, Expiry: in30, CallMid: 4, PutMid: 4, LotSize: 50},
	}
}

func TestIVRank(t *testing.T) {
	assert.Equal(t, 50.0, IVRank(nil))
	assert.Equal(t, 50.0, IVRank([]float64{20, 20, 20}))
	assert.Equal(t, 100.0, IVRank([]float64{10, 20, 15, 30}))
	assert.Equal(t, 0.0, IVRank([]float64{30, 20, 10}))
	assert.InDelta(t, 25.0, IVRank([]float64{10, 50, 20}), 1e-9)
}

func TestStraddle_SelectATM(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)

	atm, ok := s.SelectATM(100.4, chainAt(straddleNow), straddleNow)
	require.True(t, ok)
	assert.Equal(t, 100.0, atm.Strike) // 100.5 在 30 天到期，超出 10±2 天

	_, ok = s.SelectATM(100, chainAt(straddleNow.Add(-40*24*time.Hour)), straddleNow)
	assert.False(t, ok)
}

func TestStraddle_PlacesBothLegs(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)

	intents, err := s.OnTick(Input{
		Symbol: "NIFTY",
		Equity: 1_000_000,
		Snapshot: market.Snapshot{
			Time:        straddleNow,
			SpotPrice:   100.4,
			OptionChain: chainAt(straddleNow),
			IVHistory:   []float64{10, 20, 15, 30},
		},
	})
	require.NoError(t, err)
	require.Len(t, intents, 2)

	// 风险预算 20000 / (5 * 50) = 80 手，每腿 80*50
	call, put := intents[0], intents[1]
	assert.Equal(t, "NIFTY240311100CE", call.Symbol)
	assert.Equal(t, "NIFTY240311100PE", put.Symbol)
	for _, leg := range intents {
		assert.Equal(t, order.SideBuy, leg.Side)
		assert.Equal(t, order.TypeMarket, leg.Type)
		assert.Equal(t, int64(4000), leg.Qty)
	}
	assert.InDelta(t, 2.10, call.Price, 1e-9)
	assert.InDelta(t, 3.10, put.Price, 1e-9)
}

func TestStraddle_RankGate(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)

	intents, err := s.OnTick(Input{
		Equity: 1_000_000,
		Snapshot: market.Snapshot{
			Time: straddleNow, SpotPrice: 100, OptionChain: chainAt(straddleNow),
			IVHistory: []float64{30, 20, 10},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestStraddle_LookbackTrimsHistory(t *testing.T) {
	cfg := DefaultStraddleConfig()
	cfg.LookbackIVDays = 2
	s, err := NewStraddle("straddle", cfg)
	require.NoError(t, err)

	// 全量历史 rank = 25；只看最后两个值时 rank = 100
	intents, err := s.OnTick(Input{
		Symbol: "NIFTY",
		Equity: 1_000_000,
		Snapshot: market.Snapshot{
			Time: straddleNow, SpotPrice: 100, OptionChain: chainAt(straddleNow),
			IVHistory: []float64{10, 50, 15, 20},
		},
	})
	require.NoError(t, err)
	assert.Len(t, intents, 2)
}

func TestStraddle_ZeroPremiumSkips(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	chain := []market.OptionQuote{{Strike: 100, Expiry: straddleNow.Add(10 * 24 * time.Hour).Unix(), LotSize: 50}}

	intents, err := s.OnTick(Input{
		Equity:   1_000_000,
		Snapshot: market.Snapshot{Time: straddleNow, SpotPrice: 100, OptionChain: chain, IVHistory: []float64{1, 2}},
	})
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestStraddle_InvalidMarketData(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)

	_, err = s.OnTick(Input{Snapshot: market.Snapshot{SpotPrice: 100, IVHistory: []float64{1, 2}}})
	assert.ErrorIs(t, err, ErrInvalidMarketData)

	_, err = s.OnTick(Input{Snapshot: market.Snapshot{SpotPrice: 100, OptionChain: chainAt(straddleNow)}})
	assert.ErrorIs(t, err, ErrInvalidMarketData)
}

// Scenario C: 期权链为空时 OnTick 不下单也不报错。
func TestStraddle_ScenarioCEmptyChain(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	venue := newFakeVenue(1_000_000)
	c, err := NewContext(s, "NIFTY", venue, Options{})
	require.NoError(t, err)

	orders, err := c.OnTick(context.Background(), market.Snapshot{
		Time: straddleNow, SpotPrice: 100, IVHistory: []float64{10, 30},
	})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, venue.placedRequests())
}

func TestStraddle_ThroughContext(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	venue := newFakeVenue(1_000_000)
	c, err := NewContext(s, "NIFTY", venue, Options{})
	require.NoError(t, err)

	orders, err := c.OnTick(context.Background(), market.Snapshot{
		Time: straddleNow, SpotPrice: 100, OptionChain: chainAt(straddleNow), IVHistory: []float64{10, 30},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, order.StatusFilled, o.Status)
	}
	sum := c.Ledger().Summary()
	assert.Equal(t, 120.0, sum.Commission)
	assert.Equal(t, int64(4000), c.Ledger().NetPosition("NIFTY240311100CE"))
}

func straddleTick() market.Snapshot {
	return market.Snapshot{
		Time: straddleNow, SpotPrice: 100, OptionChain: chainAt(straddleNow), IVHistory: []float64{10, 30},
	}
}

func TestStraddle_MinIntervalGuardPlacesBothLegs(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	venue := newFakeVenue(1_000_000)
	guard := risk.BuildGuards(risk.GuardConfig{MinInterval: time.Second}, nil, nil)
	c, err := NewContext(s, "NIFTY", venue, Options{Guard: guard})
	require.NoError(t, err)

	orders, err := c.OnTick(context.Background(), straddleTick())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	reqs := venue.placedRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "NIFTY240311100CE", reqs[0].Symbol)
	assert.Equal(t, "NIFTY240311100PE", reqs[1].Symbol)
	assert.Equal(t, int64(4000), c.Ledger().NetPosition("NIFTY240311100PE"))

	// 间隔内再次触发：整组拒绝，一条腿都不下
	orders, err = c.OnTick(context.Background(), straddleTick())
	assert.ErrorIs(t, err, risk.ErrTooFrequent)
	assert.ErrorIs(t, err, execution.ErrExecutionRejected)
	assert.Empty(t, orders)
	assert.Len(t, venue.placedRequests(), 2)
	assert.Len(t, c.Book().List(), 2)
	assert.Equal(t, int64(2), c.Stats().Rejects)
}

type legInventory map[string]int64

func (l legInventory) NetPosition(symbol string) int64 { return l[symbol] }

func TestStraddle_NetLimitOnOneLegRejectsGroup(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	venue := newFakeVenue(1_000_000)
	// 认购腿 4000 在限额内，认沽腿已有 1000 持仓，叠加后超限
	inv := legInventory{"NIFTY240311100PE": 1000}
	guard := risk.BuildGuards(risk.GuardConfig{Limits: &risk.Limits{NetMax: 4500}}, inv, nil)
	c, err := NewContext(s, "NIFTY", venue, Options{Guard: guard})
	require.NoError(t, err)

	orders, err := c.OnTick(context.Background(), straddleTick())
	assert.ErrorIs(t, err, risk.ErrNetExceed)
	assert.Empty(t, orders)
	assert.Empty(t, venue.placedRequests())
	assert.Empty(t, c.Book().List())
	assert.Zero(t, c.Ledger().NetPosition("NIFTY240311100CE"))
}

func TestStraddle_VenueRejectUnwindsFirstLeg(t *testing.T) {
	s, err := NewStraddle("straddle", DefaultStraddleConfig())
	require.NoError(t, err)
	venue := newFakeVenue(1_000_000)
	venue.fillMarket = false
	venue.rejectErr = errors.New("no margin for put")
	venue.rejectLeg = "NIFTY240311100PE"
	c, err := NewContext(s, "NIFTY", venue, Options{})
	require.NoError(t, err)

	orders, err := c.OnTick(context.Background(), straddleTick())
	require.ErrorIs(t, err, execution.ErrExecutionRejected)
	require.Len(t, orders, 1)
	assert.Equal(t, "NIFTY240311100CE", orders[0].Symbol)
	assert.Equal(t, order.StatusCancelled, orders[0].Status)
	assert.Equal(t, []string{orders[0].ID}, venue.cancelledIDs())
	assert.Empty(t, c.Book().Active())
}
