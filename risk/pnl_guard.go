package risk

// PnLGuard 在已实现净盈亏跌破 MinPnL 后拒绝新单；MinPnL 为 0 时不限制。
type PnLGuard struct {
	MinPnL float64 // 负数，例如 -5000 表示最多亏 5000
	Source PnLSource
}

// PnLSource 提供扣除手续费后的已实现盈亏（execution.Ledger 实现）。
type PnLSource interface {
	RealizedNet() float64
}

func (g *PnLGuard) PreOrder(symbol string, deltaQty int64) error {
	if g == nil || g.Source == nil || g.MinPnL == 0 {
		return nil
	}
	if g.Source.RealizedNet() < g.MinPnL {
		return ErrPnLTooLow
	}
	return nil
}
