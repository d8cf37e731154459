// Package metrics exposes Prometheus metrics for the strategy sandbox.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 收集沙盒运行指标，每个实例使用独立 registry。
// nil Recorder 的所有方法都是空操作。
type Recorder struct {
	registry *prometheus.Registry

	ordersPlaced    *prometheus.CounterVec
	ordersFilled    *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	limitTimeouts   *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	skips           *prometheus.CounterVec
	commission      *prometheus.CounterVec
	slippage        *prometheus.HistogramVec
	highVol         *prometheus.GaugeVec
	lowLiquidity    *prometheus.GaugeVec
	barsProcessed   *prometheus.CounterVec
}

// Config 指标配置
type Config struct {
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Namespace: "sandbox"}
}

// New 创建 Recorder
func New(cfg Config) *Recorder {
	if cfg.Namespace == "" {
		cfg.Namespace = "sandbox"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	ns := cfg.Namespace
	byStrategy := []string{"strategy", "symbol"}

	return &Recorder{
		registry: reg,
		ordersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "orders_placed_total", Help: "下单总数",
		}, []string{"strategy", "symbol", "type"}),
		ordersFilled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "orders_filled_total", Help: "完全成交订单数",
		}, byStrategy),
		ordersCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "orders_cancelled_total", Help: "撤单总数",
		}, []string{"strategy", "symbol", "reason"}),
		ordersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "orders_rejected_total", Help: "被风控或交易场所拒绝的订单数",
		}, []string{"strategy", "symbol", "source"}),
		limitTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "limit_timeouts_total", Help: "限价单超时撤单数",
		}, byStrategy),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "decisions_total", Help: "产生的交易意图数",
		}, []string{"strategy", "symbol", "side"}),
		skips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "decisions_skipped_total", Help: "因数据不足或无效而跳过的决策",
		}, []string{"strategy", "symbol", "reason"}),
		commission: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "commission_total", Help: "累计手续费",
		}, byStrategy),
		slippage: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "slippage_price", Help: "执行价与参考价之差（绝对值）",
			Buckets: []float64{0, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, byStrategy),
		highVol: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "regime_high_vol", Help: "1 表示高波动状态",
		}, []string{"symbol"}),
		lowLiquidity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "regime_low_liquidity", Help: "1 表示低流动性状态",
		}, []string{"symbol"}),
		barsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "bars_processed_total", Help: "已处理的 K 线数量",
		}, []string{"symbol"}),
	}
}

func (r *Recorder) OrderPlaced(strategy, symbol, orderType string) {
	if r == nil {
		return
	}
	r.ordersPlaced.WithLabelValues(strategy, symbol, orderType).Inc()
}

func (r *Recorder) OrderFilled(strategy, symbol string) {
	if r == nil {
		return
	}
	r.ordersFilled.WithLabelValues(strategy, symbol).Inc()
}

// OrderCancelled reason: timeout, shutdown, venue_reject
func (r *Recorder) OrderCancelled(strategy, symbol, reason string) {
	if r == nil {
		return
	}
	r.ordersCancelled.WithLabelValues(strategy, symbol, reason).Inc()
}

// OrderRejected source: guard 或 venue
func (r *Recorder) OrderRejected(strategy, symbol, source string) {
	if r == nil {
		return
	}
	r.ordersRejected.WithLabelValues(strategy, symbol, source).Inc()
}

func (r *Recorder) LimitTimeout(strategy, symbol string) {
	if r == nil {
		return
	}
	r.limitTimeouts.WithLabelValues(strategy, symbol).Inc()
}

func (r *Recorder) Decision(strategy, symbol, side string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(strategy, symbol, side).Inc()
}

func (r *Recorder) DecisionSkipped(strategy, symbol, reason string) {
	if r == nil {
		return
	}
	r.skips.WithLabelValues(strategy, symbol, reason).Inc()
}

func (r *Recorder) AddCommission(strategy, symbol string, amount float64) {
	if r == nil || amount <= 0 {
		return
	}
	r.commission.WithLabelValues(strategy, symbol).Add(amount)
}

func (r *Recorder) ObserveSlippage(strategy, symbol string, diff float64) {
	if r == nil {
		return
	}
	if diff < 0 {
		diff = -diff
	}
	r.slippage.WithLabelValues(strategy, symbol).Observe(diff)
}

// SetRegime 更新某个标的的市场状态。
func (r *Recorder) SetRegime(symbol string, highVol, lowLiquidity bool) {
	if r == nil {
		return
	}
	r.highVol.WithLabelValues(symbol).Set(boolToFloat(highVol))
	r.lowLiquidity.WithLabelValues(symbol).Set(boolToFloat(lowLiquidity))
}

func (r *Recorder) BarProcessed(symbol string) {
	if r == nil {
		return
	}
	r.barsProcessed.WithLabelValues(symbol).Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层 registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
