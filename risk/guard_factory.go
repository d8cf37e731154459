package risk

import "time"

// GuardConfig 描述一个 Context 的下单前风控；零值表示不启用对应检查。
type GuardConfig struct {
	Limits      *Limits
	MinInterval time.Duration
	MaxLoss     float64 // 正数，已实现净亏损超过该值后停止下单
	ShockPct1m  float64
	ShockPct5m  float64
	// Clock 为空时使用墙钟；回放时传入随 K 线推进的时钟。
	Clock Clock
}

// BuildGuards 方便组装常用的风控组合；未配置的项会被跳过。
func BuildGuards(cfg GuardConfig, inv Inventory, pnl PnLSource) MultiGuard {
	var guards []Guard
	if l := cfg.Limits; l != nil && (l.SingleMax > 0 || l.DailyMax > 0 || l.NetMax > 0) {
		lc := NewLimitChecker(l, inv)
		if cfg.Clock != nil {
			lc.clock, lc.dayReset = cfg.Clock, time.Time{}
		}
		guards = append(guards, lc)
	}
	if cfg.MinInterval > 0 {
		lg := NewLatencyGuard(cfg.MinInterval)
		if cfg.Clock != nil {
			lg.clock = cfg.Clock
		}
		guards = append(guards, lg)
	}
	if cfg.MaxLoss > 0 && pnl != nil {
		guards = append(guards, &PnLGuard{MinPnL: -cfg.MaxLoss, Source: pnl})
	}
	if cfg.ShockPct1m > 0 || cfg.ShockPct5m > 0 {
		guards = append(guards, NewCircuitBreaker(cfg.ShockPct1m, cfg.ShockPct5m))
	}
	return MultiGuard{Guards: guards}
}
