package strategy

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	talib "github.com/markcheno/go-talib"

	"strategy-sandbox/market"
	"strategy-sandbox/order"
)

// RegimeAdaptive 先判断波动/流动性状态：高波动时缩量做均值回归（放宽滑点预算），
// 否则按基础仓位做突破（收紧滑点预算）。
type RegimeAdaptive struct {
	name       string
	cfg        RegimeAdaptiveConfig
	classifier *market.RegimeClassifier
}

func NewRegimeAdaptive(name string, cfg RegimeAdaptiveConfig) (*RegimeAdaptive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = string(KindRegimeAdaptive)
	}
	return &RegimeAdaptive{
		name:       name,
		cfg:        cfg,
		classifier: market.NewRegimeClassifier(cfg.VolHighThreshold, cfg.LiquiditySpreadThreshold),
	}, nil
}

func (r *RegimeAdaptive) Name() string                 { return r.name }
func (r *RegimeAdaptive) Kind() Kind                   { return KindRegimeAdaptive }
func (r *RegimeAdaptive) Execution() ExecutionParams   { return r.cfg.ExecutionParams }
func (r *RegimeAdaptive) Config() RegimeAdaptiveConfig { return r.cfg }

func (r *RegimeAdaptive) MinBars() int {
	return maxInt(r.cfg.MAWindow, r.cfg.BreakoutLookback+1)
}

// Regime classifies the current bar window. The second result is false while
// the history is too short to decide.
func (r *RegimeAdaptive) Regime(in Input) (market.RegimeState, bool) {
	if len(in.Bars) < r.MinBars() {
		return market.RegimeState{}, false
	}
	current := in.Snapshot.CurrentATR
	if current <= 0 {
		current = market.ATR(market.Highs(in.Bars), market.Lows(in.Bars), market.Closes(in.Bars), r.cfg.ATRPeriod)
	}
	return r.classifier.Classify(market.RegimeInput{
		CurrentATR: current,
		LongRunATR: market.LongRunATR(in.Bars, r.cfg.ATRPeriod, r.cfg.LongATRWindow),
		Spread:     in.Snapshot.BidAskSpread,
		TickSize:   r.cfg.TickSize,
	}), true
}

func (r *RegimeAdaptive) OnBar(in Input) ([]Intent, error) {
	regime, ok := r.Regime(in)
	if !ok {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(in.Bars), r.MinBars())
	}
	if regime.HighVol {
		return r.meanRevert(in), nil
	}
	return r.momentum(in), nil
}

func (r *RegimeAdaptive) OnTick(Input) ([]Intent, error) { return nil, nil }

// ReducedSize 高波动下的仓位：floor(base × factor)，不低于 1 和 minQty。
func (r *RegimeAdaptive) ReducedSize() int64 {
	size := int64(math.Floor(float64(r.cfg.BaseSize) * r.cfg.ReducedSizeFactor))
	if size < 1 {
		size = 1
	}
	if size < r.cfg.MinQty {
		size = r.cfg.MinQty
	}
	return size
}

func (r *RegimeAdaptive) meanRevert(in Input) []Intent {
	closes := market.Closes(in.Bars[len(in.Bars)-r.cfg.MAWindow:])
	sma := talib.Sma(closes, r.cfg.MAWindow)
	ma := sma[len(sma)-1]
	last := in.Bars[len(in.Bars)-1]
	if ma <= 0 || last.Close <= ma*(1+r.cfg.MeanRevertBandPct) {
		return nil
	}
	return []Intent{r.marketIntent(in.Symbol, order.SideSell, r.ReducedSize(), last.Close, r.cfg.SlippageTicksHighVol,
		fmt.Sprintf("high-vol mean-revert close %.2f > ma %.2f", last.Close, ma))}
}

func (r *RegimeAdaptive) momentum(in Input) []Intent {
	n := len(in.Bars)
	last := in.Bars[n-1]
	prior := in.Bars[n-1-r.cfg.BreakoutLookback : n-1]
	high := market.MaxHigh(prior)
	if last.Close <= high {
		return nil
	}
	size := r.cfg.BaseSize
	if size < r.cfg.MinQty {
		size = r.cfg.MinQty
	}
	return []Intent{r.marketIntent(in.Symbol, order.SideBuy, size, last.Close, r.cfg.SlippageTicksLowVol,
		fmt.Sprintf("low-vol momentum close %.2f > high %.2f", last.Close, high))}
}

func (r *RegimeAdaptive) marketIntent(symbol string, side order.Side, qty int64, ref, slippageTicks float64, reason string) Intent {
	exec := r.cfg.Simulator().WithSlippage(slippageTicks).Execute(ref, side)
	return Intent{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Side:           side,
		Type:           order.TypeMarket,
		Qty:            qty,
		Price:          exec.Price,
		ReferencePrice: ref,
		Reason:         reason,
	}
}
