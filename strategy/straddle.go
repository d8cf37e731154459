package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"strategy-sandbox/market"
	"strategy-sandbox/order"
	"strategy-sandbox/risk"
)

// Straddle 在 IV rank 高于阈值时买入 ATM 跨式（同数量的 call 与 put）。只在 tick 上决策。
type Straddle struct {
	name string
	cfg  StraddleConfig
}

func NewStraddle(name string, cfg StraddleConfig) (*Straddle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = string(KindStraddle)
	}
	return &Straddle{name: name, cfg: cfg}, nil
}

func (s *Straddle) Name() string               { return s.name }
func (s *Straddle) Kind() Kind                 { return KindStraddle }
func (s *Straddle) Execution() ExecutionParams { return s.cfg.ExecutionParams }
func (s *Straddle) Config() StraddleConfig     { return s.cfg }
func (s *Straddle) MinBars() int               { return 0 }

func (s *Straddle) OnBar(Input) ([]Intent, error) { return nil, nil }

func (s *Straddle) OnTick(in Input) ([]Intent, error) {
	snap := in.Snapshot
	if len(snap.IVHistory) == 0 {
		return nil, fmt.Errorf("%w: empty iv history", ErrInvalidMarketData)
	}
	if len(snap.OptionChain) == 0 {
		return nil, fmt.Errorf("%w: empty option chain", ErrInvalidMarketData)
	}
	if snap.SpotPrice <= 0 {
		return nil, fmt.Errorf("%w: spot price %v", ErrInvalidMarketData, snap.SpotPrice)
	}

	history := snap.IVHistory
	if s.cfg.LookbackIVDays > 0 && len(history) > s.cfg.LookbackIVDays {
		history = history[len(history)-s.cfg.LookbackIVDays:]
	}
	rank := IVRank(history)
	if rank <= s.cfg.IVRankThreshold {
		return nil, nil
	}

	now := snap.Time
	if now.IsZero() {
		now = in.Now
	}
	atm, ok := s.SelectATM(snap.SpotPrice, snap.OptionChain, now)
	if !ok {
		return nil, nil
	}

	lot := atm.LotSize
	if lot < 1 {
		lot = 1
	}
	qty, ok := risk.SizeStraddle(in.Equity, s.cfg.MaxRiskPct, atm.CallMid+atm.PutMid, lot, s.cfg.MinQty)
	if !ok {
		return nil, nil
	}

	sim := s.cfg.Simulator()
	callSym, putSym := atm.LegSymbols(in.Symbol)
	reason := fmt.Sprintf("ivrank %.1f strike %g straddles %d", rank, atm.Strike, qty)
	legs := []struct {
		symbol string
		mid    float64
	}{{callSym, atm.CallMid}, {putSym, atm.PutMid}}

	intents := make([]Intent, 0, len(legs))
	for _, leg := range legs {
		exec := sim.Execute(leg.mid, order.SideBuy)
		intents = append(intents, Intent{
			ID:             uuid.NewString(),
			Symbol:         leg.symbol,
			Side:           order.SideBuy,
			Type:           order.TypeMarket,
			Qty:            qty * lot,
			Price:          exec.Price,
			ReferencePrice: leg.mid,
			Reason:         reason,
		})
	}
	return intents, nil
}

// SelectATM 在到期日落在 target±tolerance 天内的合约中选行权价最接近现价的一档；
// 行权价距离相同时取到期日更接近目标的。
func (s *Straddle) SelectATM(spot float64, chain []market.OptionQuote, now time.Time) (market.OptionQuote, bool) {
	var (
		best     market.OptionQuote
		found    bool
		bestDist float64
		bestDays float64
	)
	for _, q := range chain {
		days := math.Abs(q.DaysToExpiry(now) - s.cfg.DaysToExpiryTarget)
		if days > s.cfg.ExpiryToleranceDays {
			continue
		}
		dist := math.Abs(q.Strike - spot)
		if !found || dist < bestDist || (dist == bestDist && days < bestDays) {
			best, bestDist, bestDays, found = q, dist, days, true
		}
	}
	return best, found
}

// IVRank min-max 归一化当前 IV（最后一个值）到 [0,100]；区间为零时返回 50。
func IVRank(history []float64) float64 {
	if len(history) == 0 {
		return 50
	}
	cur := history[len(history)-1]
	lo, hi := cur, cur
	for _, v := range history {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 50
	}
	return 100 * (cur - lo) / (hi - lo)
}
