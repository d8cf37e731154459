package strategy

import (
	"fmt"

	"github.com/google/uuid"

	"strategy-sandbox/market"
	"strategy-sandbox/order"
	"strategy-sandbox/risk"
)

// MomentumBreakout 在收盘价突破前 N 根（不含当前）最高/最低价且成交量不萎缩时，
// 以市价顺势入场，止损距离 = ATR × atrMultiplierStop。
type MomentumBreakout struct {
	name string
	cfg  MomentumConfig
}

func NewMomentumBreakout(name string, cfg MomentumConfig) (*MomentumBreakout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = string(KindMomentumBreakout)
	}
	return &MomentumBreakout{name: name, cfg: cfg}, nil
}

func (m *MomentumBreakout) Name() string               { return m.name }
func (m *MomentumBreakout) Kind() Kind                 { return KindMomentumBreakout }
func (m *MomentumBreakout) Execution() ExecutionParams { return m.cfg.ExecutionParams }
func (m *MomentumBreakout) Config() MomentumConfig     { return m.cfg }

// MinBars 至少 20 根，同时覆盖成交量窗口与突破窗口。
func (m *MomentumBreakout) MinBars() int {
	return maxInt(20, m.cfg.VolumeWindow, m.cfg.BreakoutLookback+1)
}

func (m *MomentumBreakout) OnBar(in Input) ([]Intent, error) {
	bars := in.Bars
	n := len(bars)
	if n < m.MinBars() {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, n, m.MinBars())
	}
	last := bars[n-1]

	avgVol := meanOf(market.Volumes(bars[n-m.cfg.VolumeWindow:]))
	if last.Volume < m.cfg.VolumeSurgeMultiplier*avgVol {
		return nil, nil
	}

	prior := bars[n-1-m.cfg.BreakoutLookback : n-1]
	var side order.Side
	switch {
	case last.Close > market.MaxHigh(prior):
		side = order.SideBuy
	case last.Close < market.MinLow(prior):
		side = order.SideSell
	default:
		return nil, nil
	}

	atr := market.ATR(market.Highs(bars), market.Lows(bars), market.Closes(bars), m.cfg.ATRPeriod)
	stop := atr * m.cfg.ATRMultiplierStop
	if stop <= 0 {
		stop = m.cfg.FallbackStopDistance
	}
	qty := risk.Size(in.Equity, m.cfg.RiskPerTradePct, stop, m.cfg.MinQty)
	exec := m.cfg.Simulator().Execute(last.Close, side)

	return []Intent{{
		ID:             uuid.NewString(),
		Symbol:         in.Symbol,
		Side:           side,
		Type:           order.TypeMarket,
		Qty:            qty,
		Price:          exec.Price,
		ReferencePrice: last.Close,
		StopDistance:   stop,
		Reason:         fmt.Sprintf("breakout %s atr=%.4f vol=%.0f/%.0f", side, atr, last.Volume, avgVol),
	}}, nil
}

// OnTick 动量策略只在 bar 上决策。
func (m *MomentumBreakout) OnTick(Input) ([]Intent, error) { return nil, nil }

func maxInt(first int, rest ...int) int {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
