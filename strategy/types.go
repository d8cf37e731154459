package strategy

import (
	"time"

	"strategy-sandbox/market"
	"strategy-sandbox/order"
)

// Kind 策略类型标识（配置文件中的 type 字段）。
type Kind string

const (
	KindMomentumBreakout Kind = "momentum_breakout"
	KindMeanReversion    Kind = "mean_reversion_vwap"
	KindStraddle         Kind = "options_straddle_vol"
	KindRegimeAdaptive   Kind = "regime_adaptive"
)

// Intent is one order the strategy wants placed. Price is what goes to the
// venue: slippage-adjusted for MARKET, the limit price for LIMIT.
type Intent struct {
	ID             string
	Symbol         string
	Side           order.Side
	Type           order.Type
	Qty            int64
	Price          float64
	ReferencePrice float64
	StopDistance   float64
	Timeout        time.Duration
	Reason         string
}

// Input is the read-only view a strategy decides on. Bars is oldest->newest
// and must not be modified.
type Input struct {
	Symbol          string
	Bars            []market.Bar
	Snapshot        market.Snapshot
	Equity          float64
	Now             time.Time
	HasWorkingOrder bool
}

// Strategy is a pure decision rule. Implementations keep no per-symbol
// state, so one value can serve several contexts.
type Strategy interface {
	Name() string
	Kind() Kind
	MinBars() int
	Execution() ExecutionParams
	OnBar(in Input) ([]Intent, error)
	OnTick(in Input) ([]Intent, error)
}

// regimeAware is implemented by strategies that classify the market before
// deciding; Context publishes the result as a metric.
type regimeAware interface {
	Regime(in Input) (market.RegimeState, bool)
}
