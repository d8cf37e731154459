package market

import (
	"sync"
	"time"
)

// BarAggregator 从成交流生成固定周期的 Bar。周期按 Interval 对齐（Truncate），
// 跨越周期边界的第一笔成交会关闭上一根 bar 并开启新的一根。
type BarAggregator struct {
	Interval time.Duration
	mu       sync.Mutex
	current  *Bar
	start    time.Time
}

func NewBarAggregator(interval time.Duration) *BarAggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BarAggregator{Interval: interval}
}

// OnTrade 更新当前 Bar；返回 (闭合的 Bar, true) 或 (Bar{}, false)。
// 早于当前周期的成交直接忽略。
func (a *BarAggregator) OnTrade(t Trade) (Bar, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket := t.Ts.Truncate(a.Interval)
	if a.current != nil && bucket.Before(a.start) {
		return Bar{}, false
	}
	if a.current != nil && bucket.Equal(a.start) {
		if t.Price > a.current.High {
			a.current.High = t.Price
		}
		if t.Price < a.current.Low {
			a.current.Low = t.Price
		}
		a.current.Close = t.Price
		a.current.Volume += t.Qty
		return Bar{}, false
	}

	var (
		closed Bar
		ok     bool
	)
	if a.current != nil {
		closed, ok = *a.current, true
	}
	a.start = bucket
	a.current = &Bar{
		Time:   bucket.Unix(),
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Qty,
	}
	return closed, ok
}

// Flush 关闭并返回当前未完成的 Bar。
func (a *BarAggregator) Flush() (Bar, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Bar{}, false
	}
	b := *a.current
	a.current = nil
	return b, true
}
