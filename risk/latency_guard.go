package risk

import (
	"sync"
	"time"
)

// LatencyGuard 用于限制同方向订单的最小间隔。
type LatencyGuard struct {
	MinInterval time.Duration

	mu         sync.Mutex
	lastBuyTS  time.Time
	lastSellTS time.Time
	clock      Clock
}

func NewLatencyGuard(minInterval time.Duration) *LatencyGuard {
	return &LatencyGuard{
		MinInterval: minInterval,
		clock:       NowUTC,
	}
}

func (g *LatencyGuard) PreOrder(symbol string, deltaQty int64) error {
	return g.PreOrderBatch([]Leg{{Symbol: symbol, DeltaQty: deltaQty}})
}

// PreOrderBatch 同一组里同方向的腿算作一次下单。
func (g *LatencyGuard) PreOrderBatch(legs []Leg) error {
	if g == nil || g.MinInterval <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	var buy, sell bool
	for _, leg := range legs {
		if leg.DeltaQty < 0 {
			sell = true
		} else {
			buy = true
		}
	}
	if buy && g.tooSoon(g.lastBuyTS, now) {
		return ErrTooFrequent
	}
	if sell && g.tooSoon(g.lastSellTS, now) {
		return ErrTooFrequent
	}
	if buy {
		g.lastBuyTS = now
	}
	if sell {
		g.lastSellTS = now
	}
	return nil
}

func (g *LatencyGuard) tooSoon(last, now time.Time) bool {
	return !last.IsZero() && now.Sub(last) < g.MinInterval
}
