package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Limits 配置；0 表示不限制。
type Limits struct {
	SingleMax int64
	DailyMax  int64
	NetMax    int64
}

// Inventory 提供净仓位。
type Inventory interface {
	NetPosition(symbol string) int64
}

// LimitChecker 维护日累计下单量与净敞口校验。
type LimitChecker struct {
	mu       sync.Mutex
	cfg      *Limits
	inv      Inventory
	dayVol   map[string]int64
	dayReset time.Time
	clock    Clock
}

func NewLimitChecker(cfg *Limits, inv Inventory) *LimitChecker {
	return &LimitChecker{
		cfg:      cfg,
		inv:      inv,
		dayVol:   make(map[string]int64),
		dayReset: NowUTC.Now(),
		clock:    NowUTC,
	}
}

// PreOrder 校验下单前约束。被拒绝的订单不计入日累计。
func (lc *LimitChecker) PreOrder(symbol string, deltaQty int64) error {
	return lc.PreOrderBatch([]Leg{{Symbol: symbol, DeltaQty: deltaQty}})
}

// PreOrderBatch 按累计量校验整组腿：同一标的的多条腿叠加计算日累计和净敞口，
// 任一条超限则整组拒绝且不计入日累计。
func (lc *LimitChecker) PreOrderBatch(legs []Leg) error {
	if lc.cfg == nil {
		return errors.New("limits not configured")
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.clock.Now()
	if lc.dayReset.IsZero() {
		lc.dayReset = now
	}
	if now.Sub(lc.dayReset) > 24*time.Hour {
		lc.dayVol = make(map[string]int64)
		lc.dayReset = now
	}

	day := make(map[string]int64, len(legs))
	net := make(map[string]int64, len(legs))
	for _, leg := range legs {
		absQty := abs(leg.DeltaQty)
		if lc.cfg.SingleMax > 0 && absQty > lc.cfg.SingleMax {
			return fmt.Errorf("%w: %d > single %d", ErrSingleExceed, absQty, lc.cfg.SingleMax)
		}
		if _, ok := day[leg.Symbol]; !ok {
			day[leg.Symbol] = lc.dayVol[leg.Symbol]
		}
		day[leg.Symbol] += absQty
		if lc.cfg.DailyMax > 0 && day[leg.Symbol] > lc.cfg.DailyMax {
			return fmt.Errorf("%w: %d > daily %d", ErrDailyExceed, day[leg.Symbol], lc.cfg.DailyMax)
		}
		if lc.inv != nil && lc.cfg.NetMax > 0 {
			if _, ok := net[leg.Symbol]; !ok {
				net[leg.Symbol] = lc.inv.NetPosition(leg.Symbol)
			}
			net[leg.Symbol] += leg.DeltaQty
			if abs(net[leg.Symbol]) > lc.cfg.NetMax {
				return fmt.Errorf("%w: %d > net %d", ErrNetExceed, net[leg.Symbol], lc.cfg.NetMax)
			}
		}
	}
	for symbol, v := range day {
		lc.dayVol[symbol] = v
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
