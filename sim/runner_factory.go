package sim

import (
	"fmt"
	"time"

	"strategy-sandbox/config"
	"strategy-sandbox/execution"
	"strategy-sandbox/infrastructure/logger"
	"strategy-sandbox/metrics"
	"strategy-sandbox/risk"
	"strategy-sandbox/strategy"
)

// BuildOptions 组装 Context 时共享的基础设施。
type BuildOptions struct {
	Logger  *logger.Logger
	Metrics *metrics.Recorder
	Clock   risk.Clock
	// BarClock 为每个 Context 配一个随 K 线推进的时钟，限价单超时和风控间隔
	// 都按回放时间计算。Clock 非空时忽略。
	BarClock   bool
	MaxHistory int
}

// BuildContexts 按配置为每个 (策略, 标的) 创建一个 Context。每个 Context 拥有独立的
// 订单簿、账本和风控状态。
func BuildContexts(cfg config.AppConfig, venue execution.Venue, opts BuildOptions) ([]*strategy.Context, error) {
	factory := strategy.NewStrategyFactory()
	var contexts []*strategy.Context
	for _, sc := range cfg.Strategies {
		params, err := sc.TypedParams()
		if err != nil {
			return nil, err
		}
		strat, err := factory.CreateStrategy(sc.Type, sc.Name, params)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		for _, symbol := range sc.Symbols {
			ledger := execution.NewLedger()
			clock := opts.Clock
			if clock == nil && opts.BarClock {
				clock = &risk.ManualClock{}
			}
			guard := risk.BuildGuards(risk.GuardConfig{
				Limits: &risk.Limits{
					SingleMax: sc.Limits.SingleMax,
					DailyMax:  sc.Limits.DailyMax,
					NetMax:    sc.Limits.NetMax,
				},
				MinInterval: time.Duration(sc.Limits.MinIntervalMs) * time.Millisecond,
				MaxLoss:     sc.Limits.MaxLoss,
				ShockPct1m:  sc.Limits.ShockPct1m,
				ShockPct5m:  sc.Limits.ShockPct5m,
				Clock:       clock,
			}, ledger, ledger)
			c, err := strategy.NewContext(strat, symbol, venue, strategy.Options{
				Logger:     opts.Logger,
				Metrics:    opts.Metrics,
				Clock:      clock,
				Guard:      guard,
				Ledger:     ledger,
				MaxHistory: opts.MaxHistory,
			})
			if err != nil {
				return nil, fmt.Errorf("strategy %s/%s: %w", sc.Name, symbol, err)
			}
			contexts = append(contexts, c)
		}
	}
	return contexts, nil
}

// NewSandboxFromConfig 按 venue 配置创建沙盒。
func NewSandboxFromConfig(cfg config.VenueConfig) *Sandbox {
	return NewSandbox(SandboxConfig{
		InitialBalance:   cfg.InitialBalance,
		FillMarketOrders: cfg.FillMarketOrders,
		MatchLimitOrders: cfg.MatchLimitOrders,
		AsyncFills:       cfg.AsyncFills,
	})
}

// Summary 汇总所有 Context 的账本。
type Summary struct {
	RealizedGross float64
	Commission    float64
	RealizedNet   float64
	Fills         int
	Orders        int
}

func Summarize(contexts []*strategy.Context) Summary {
	var s Summary
	for _, c := range contexts {
		ls := c.Ledger().Summary()
		s.RealizedGross += ls.RealizedGross
		s.Commission += ls.Commission
		s.Fills += ls.Fills
		s.Orders += len(c.Book().List())
	}
	s.RealizedNet = s.RealizedGross - s.Commission
	return s
}
