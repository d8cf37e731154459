package risk

import "time"

// Guard 是下单前校验接口；deltaQty 为本次下单数量（正买负卖）。
type Guard interface {
	PreOrder(symbol string, deltaQty int64) error
}

// PriceObserver 由需要行情的 Guard 实现（例如 CircuitBreaker）。
type PriceObserver interface {
	Observe(price float64, ts time.Time) (bool, string)
}

// Leg 是一组原子下单中的一条腿。
type Leg struct {
	Symbol   string
	DeltaQty int64
}

// BatchGuard 对一组订单整体放行或整体拒绝；拒绝时不留下任何状态变化。
type BatchGuard interface {
	PreOrderBatch(legs []Leg) error
}

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) PreOrder(symbol string, deltaQty int64) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.PreOrder(symbol, deltaQty); err != nil {
			return err
		}
	}
	return nil
}

// PreOrderBatch 整组校验。实现了 BatchGuard 的子 Guard 一次看到全部腿，
// 其余的逐腿校验。
func (m MultiGuard) PreOrderBatch(legs []Leg) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if bg, ok := g.(BatchGuard); ok {
			if err := bg.PreOrderBatch(legs); err != nil {
				return err
			}
			continue
		}
		for _, leg := range legs {
			if err := g.PreOrder(leg.Symbol, leg.DeltaQty); err != nil {
				return err
			}
		}
	}
	return nil
}

// Observe 把价格转发给所有 PriceObserver，任一触发即返回其窗口。
func (m MultiGuard) Observe(price float64, ts time.Time) (bool, string) {
	var (
		tripped bool
		span    string
	)
	for _, g := range m.Guards {
		obs, ok := g.(PriceObserver)
		if !ok {
			continue
		}
		if trip, s := obs.Observe(price, ts); trip && !tripped {
			tripped, span = true, s
		}
	}
	return tripped, span
}
