package sim

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"strategy-sandbox/execution"
	"strategy-sandbox/infrastructure/logger"
	"strategy-sandbox/market"
	"strategy-sandbox/strategy"
)

// Feed 是一个标的的回放数据。Snapshots 与 Bars 按下标对齐，可以更短或为空。
type Feed struct {
	Symbol    string
	Bars      []market.Bar
	Snapshots []market.Snapshot
}

func (f Feed) snapshot(i int) (market.Snapshot, bool) {
	if i < len(f.Snapshots) {
		return f.Snapshots[i], true
	}
	return market.Snapshot{}, false
}

// BarMatcher 让交易场所在每根新 bar 到来前撮合挂单（Sandbox 实现）。
type BarMatcher interface {
	MatchBar(symbol string, bar market.Bar) int
}

// Report 汇总一次回放。
type Report struct {
	Bars     map[string]int
	Orders   int
	Rejected int
	Matched  int
}

// Runner 将行情->策略->下单串起来：每个标的一个 goroutine，同一标的的多个
// Context 按 bar 顺序串行调用。
type Runner struct {
	Contexts   []*strategy.Context
	Matcher    BarMatcher
	Logger     *logger.Logger
	OnProgress func(symbol string)
}

// Run replays every feed until done or ctx is cancelled. Venue rejections
// are counted and the replay continues; any other error stops all workers.
func (r *Runner) Run(ctx context.Context, feeds []Feed) (Report, error) {
	log := r.Logger
	if log == nil {
		log = logger.NewNop()
	}
	bySymbol := make(map[string][]*strategy.Context)
	for _, c := range r.Contexts {
		bySymbol[c.Symbol()] = append(bySymbol[c.Symbol()], c)
	}

	var (
		mu  sync.Mutex
		rep = Report{Bars: make(map[string]int)}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		feed := feed
		contexts := bySymbol[feed.Symbol]
		if len(contexts) == 0 {
			log.Warn("feed has no strategy context", zap.String("symbol", feed.Symbol))
			continue
		}
		g.Go(func() error {
			var orders, rejected, matched int
			defer func() {
				mu.Lock()
				rep.Orders += orders
				rep.Rejected += rejected
				rep.Matched += matched
				mu.Unlock()
			}()

			for i, bar := range feed.Bars {
				if err := gctx.Err(); err != nil {
					return err
				}
				if r.Matcher != nil {
					matched += r.Matcher.MatchBar(feed.Symbol, bar)
				}
				snap, hasSnap := feed.snapshot(i)
				for _, c := range contexts {
					placed, err := c.OnBar(gctx, bar, snap)
					orders += len(placed)
					if err := r.check(log, c, err, &rejected); err != nil {
						return err
					}
					if !hasSnap {
						continue
					}
					placed, err = c.OnTick(gctx, snap)
					orders += len(placed)
					if err := r.check(log, c, err, &rejected); err != nil {
						return err
					}
				}
				mu.Lock()
				rep.Bars[feed.Symbol]++
				mu.Unlock()
				if r.OnProgress != nil {
					r.OnProgress(feed.Symbol)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return rep, err
}

func (r *Runner) check(log *logger.Logger, c *strategy.Context, err error, rejected *int) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, execution.ErrExecutionRejected) {
		*rejected++
		log.Warn("order rejected",
			zap.String("strategy", c.Strategy().Name()),
			zap.String("symbol", c.Symbol()),
			zap.Error(err))
		return nil
	}
	return err
}

// Shutdown 关闭所有 Context（撤销未完成订单）。
func Shutdown(ctx context.Context, contexts []*strategy.Context) error {
	var errs []error
	for _, c := range contexts {
		if err := c.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
