package risk

import (
	"sync"
	"time"
)

// Tick 依赖 minimal 行情信息。
type Tick struct {
	Price float64
	Ts    time.Time
}

// CircuitBreaker 基于近期价格变动熔断：1m 或 5m 窗口内涨跌幅超过阈值时拒绝新单，
// 直到窗口内的变动回落到阈值以内。
type CircuitBreaker struct {
	// 阈值：1m、5m 相对涨跌幅，0 表示不检查该窗口
	OneMinuteThresh  float64
	FiveMinuteThresh float64

	mu       sync.Mutex
	window1m []Tick
	window5m []Tick
	open     string
}

func NewCircuitBreaker(one, five float64) *CircuitBreaker {
	return &CircuitBreaker{
		OneMinuteThresh:  one,
		FiveMinuteThresh: five,
		window1m:         make([]Tick, 0, 128),
		window5m:         make([]Tick, 0, 512),
	}
}

// Observe 推入一笔价格，返回 (是否触发, 触发窗口 "1m"/"5m"/"")。
func (c *CircuitBreaker) Observe(price float64, ts time.Time) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Tick{Price: price, Ts: ts}
	c.window1m = append(c.window1m, t)
	c.window5m = append(c.window5m, t)
	c.trim(&c.window1m, ts.Add(-1*time.Minute))
	c.trim(&c.window5m, ts.Add(-5*time.Minute))

	c.open = ""
	if c.check(c.window1m, c.OneMinuteThresh) {
		c.open = "1m"
	} else if c.check(c.window5m, c.FiveMinuteThresh) {
		c.open = "5m"
	}
	return c.open != "", c.open
}

// PreOrder 熔断期间拒绝任何方向的新单。
func (c *CircuitBreaker) PreOrder(symbol string, deltaQty int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != "" {
		return ErrCircuitOpen
	}
	return nil
}

// trim 丢弃 cutoff 之前（含）的价格，保留最新一笔。
func (c *CircuitBreaker) trim(buf *[]Tick, cutoff time.Time) {
	i := 0
	for ; i < len(*buf)-1; i++ {
		if (*buf)[i].Ts.After(cutoff) {
			break
		}
	}
	if i > 0 {
		*buf = (*buf)[i:]
	}
}

func (c *CircuitBreaker) check(buf []Tick, thresh float64) bool {
	if thresh <= 0 || len(buf) == 0 {
		return false
	}
	first := buf[0].Price
	last := buf[len(buf)-1].Price
	if first == 0 {
		return false
	}
	change := (last - first) / first
	return change > thresh || change < -thresh
}
