package strategy

import (
	"fmt"

	"github.com/google/uuid"

	"strategy-sandbox/market"
	"strategy-sandbox/order"
	"strategy-sandbox/risk"
)

// MeanReversion 收盘价相对 VWAP 偏离超过阈值且 RSI 确认超买/超卖时，挂限价单反向入场。
// 限价单由 Context 负责超时撤单，不自动重下。
type MeanReversion struct {
	name string
	cfg  MeanReversionConfig
}

func NewMeanReversion(name string, cfg MeanReversionConfig) (*MeanReversion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = string(KindMeanReversion)
	}
	return &MeanReversion{name: name, cfg: cfg}, nil
}

func (m *MeanReversion) Name() string                { return m.name }
func (m *MeanReversion) Kind() Kind                  { return KindMeanReversion }
func (m *MeanReversion) Execution() ExecutionParams  { return m.cfg.ExecutionParams }
func (m *MeanReversion) Config() MeanReversionConfig { return m.cfg }
func (m *MeanReversion) MinBars() int                { return m.cfg.VWAPLookback + 5 }

func (m *MeanReversion) OnBar(in Input) ([]Intent, error) {
	bars := in.Bars
	n := len(bars)
	if n < m.MinBars() {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, n, m.MinBars())
	}
	// 上一张限价单还在等待成交/超时
	if in.HasWorkingOrder {
		return nil, nil
	}

	snap := market.ComputeSnapshot(bars, m.cfg.ATRPeriod, m.cfg.RSIPeriod, m.cfg.VWAPLookback)
	if snap.VWAP <= 0 {
		return nil, nil
	}
	last := bars[n-1]
	deviation := (last.Close - snap.VWAP) / snap.VWAP

	var side order.Side
	switch {
	case deviation > m.cfg.DeviationPct && snap.RSI > m.cfg.RSIOverbought:
		side = order.SideSell
	case deviation < -m.cfg.DeviationPct && snap.RSI < m.cfg.RSIOversold:
		side = order.SideBuy
	default:
		return nil, nil
	}

	// 比当前价让出 offset 个 tick，卖单挂低、买单挂高，提高成交概率
	offset := m.cfg.LimitOffsetTicks * m.cfg.TickSize
	price := last.Close + offset
	if side == order.SideSell {
		price = last.Close - offset
	}
	price = m.cfg.Simulator().Round(price)

	qty := m.cfg.MinQty
	var stop float64
	if m.cfg.RiskPerTradePct > 0 {
		stop = snap.ATR * m.cfg.ATRMultiplierStop
		if stop <= 0 {
			stop = m.cfg.FallbackStopDistance
		}
		qty = risk.Size(in.Equity, m.cfg.RiskPerTradePct, stop, m.cfg.MinQty)
	}

	return []Intent{{
		ID:             uuid.NewString(),
		Symbol:         in.Symbol,
		Side:           side,
		Type:           order.TypeLimit,
		Qty:            qty,
		Price:          price,
		ReferencePrice: last.Close,
		StopDistance:   stop,
		Timeout:        m.cfg.Timeout(),
		Reason:         fmt.Sprintf("vwap deviation %.4f rsi %.1f", deviation, snap.RSI),
	}}, nil
}

func (m *MeanReversion) OnTick(Input) ([]Intent, error) { return nil, nil }
