package execution

import (
	"sort"
	"sync"

	"strategy-sandbox/order"
)

// Fill is one execution applied to the ledger.
type Fill struct {
	OrderID    string
	Symbol     string
	Side       order.Side
	Qty        int64
	Price      float64
	Commission float64
}

type position struct {
	net      int64
	avgCost  float64
	realized float64
}

// Ledger 维护净仓位、均价、已实现毛利与手续费。手续费单独记账，不并入成交价。
type Ledger struct {
	mu         sync.RWMutex
	positions  map[string]*position
	commission float64
	fills      int
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]*position)}
}

// Record 根据成交调整仓位（加权平均成本），平仓部分计入已实现毛利。
func (l *Ledger) Record(f Fill) {
	if f.Qty <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[f.Symbol]
	if !ok {
		p = &position{}
		l.positions[f.Symbol] = p
	}
	delta := f.Qty
	if f.Side == order.SideSell {
		delta = -delta
	}

	switch {
	case p.net == 0 || sameSign(p.net, delta):
		total := p.avgCost*float64(abs64(p.net)) + f.Price*float64(abs64(delta))
		p.net += delta
		p.avgCost = total / float64(abs64(p.net))
	default:
		closing := min64(abs64(delta), abs64(p.net))
		dir := 1.0
		if p.net < 0 {
			dir = -1.0
		}
		p.realized += float64(closing) * (f.Price - p.avgCost) * dir
		p.net += delta
		switch {
		case p.net == 0:
			p.avgCost = 0
		case abs64(delta) > closing:
			p.avgCost = f.Price
		}
	}
	l.commission += f.Commission
	l.fills++
}

// NetPosition 当前净仓位。
func (l *Ledger) NetPosition(symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.positions[symbol]; ok {
		return p.net
	}
	return 0
}

func (l *Ledger) AvgCost(symbol string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.positions[symbol]; ok {
		return p.avgCost
	}
	return 0
}

// UnrealizedGross marks the open position of symbol at mark.
func (l *Ledger) UnrealizedGross(symbol string, mark float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	if !ok || p.net == 0 {
		return 0
	}
	return float64(p.net) * (mark - p.avgCost)
}

// Summary is a point-in-time PnL report.
type Summary struct {
	RealizedGross float64
	Commission    float64
	RealizedNet   float64
	Fills         int
	Positions     map[string]int64
}

// Summary 汇总毛利、手续费与净利。
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Summary{
		Commission: l.commission,
		Fills:      l.fills,
		Positions:  make(map[string]int64, len(l.positions)),
	}
	for sym, p := range l.positions {
		s.RealizedGross += p.realized
		s.Positions[sym] = p.net
	}
	s.RealizedNet = s.RealizedGross - s.Commission
	return s
}

// RealizedNet 已实现毛利减去手续费。
func (l *Ledger) RealizedNet() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	gross := 0.0
	for _, p := range l.positions {
		gross += p.realized
	}
	return gross - l.commission
}

// Symbols returns the symbols with recorded fills, sorted.
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func sameSign(a, b int64) bool { return (a > 0) == (b > 0) }

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
