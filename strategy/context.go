package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"strategy-sandbox/execution"
	"strategy-sandbox/infrastructure/logger"
	"strategy-sandbox/market"
	"strategy-sandbox/metrics"
	"strategy-sandbox/order"
	"strategy-sandbox/risk"
)

// DefaultMaxHistory 每个 Context 保留的最大 K 线数量。
const DefaultMaxHistory = 500

// Options 是 Context 的可选依赖；零值可用。
type Options struct {
	Logger     *logger.Logger
	Metrics    *metrics.Recorder
	Clock      risk.Clock
	Guard      risk.Guard
	Ledger     *execution.Ledger
	MaxHistory int
}

// Statistics Context 统计信息
type Statistics struct {
	Bars     int64
	Ticks    int64
	Intents  int64
	Orders   int64
	Fills    int64
	Rejects  int64
	Timeouts int64
	Errors   int64
}

// Context drives one strategy for one symbol. Bar and tick events are
// serialized; limit-order waits run in their own goroutines so a working
// order never blocks the next event.
type Context struct {
	strat  Strategy
	symbol string
	venue  execution.Venue
	book   *order.Book
	ledger *execution.Ledger
	guard  risk.Guard
	clock  risk.Clock
	// manual 非空时限价单截止只由 K 线时间推进
	manual *risk.ManualClock
	log    *logger.Logger
	rec    *metrics.Recorder
	prefix string

	mu         sync.Mutex
	bars       []market.Bar
	maxHistory int
	closed     bool

	// fillMu 串行化成交回报，保证首笔成交才计手续费
	fillMu sync.Mutex

	waits sync.WaitGroup

	deadlineMu sync.Mutex
	deadlines  map[string]time.Time

	statsMu sync.Mutex
	stats   Statistics
}

// NewContext wires a strategy to a venue. The context registers its own fill
// handler on the venue and only consumes reports for order IDs it allocated.
func NewContext(strat Strategy, symbol string, venue execution.Venue, opts Options) (*Context, error) {
	if strat == nil {
		return nil, errors.New("strategy is required")
	}
	if venue == nil {
		return nil, errors.New("venue is required")
	}
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = risk.NowUTC
	}
	if opts.Ledger == nil {
		opts.Ledger = execution.NewLedger()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.MaxHistory < strat.MinBars() {
		opts.MaxHistory = strat.MinBars()
	}

	prefix := fmt.Sprintf("%s-%s-", strat.Name(), symbol)
	book := order.NewBook(prefix)
	book.SetClock(opts.Clock.Now)
	book.SetConstraints(symbol, strat.Execution().Constraints())

	c := &Context{
		strat:      strat,
		symbol:     symbol,
		venue:      venue,
		book:       book,
		ledger:     opts.Ledger,
		guard:      opts.Guard,
		clock:      opts.Clock,
		log:        opts.Logger.Named("strategy", zap.String("strategy", strat.Name()), zap.String("symbol", symbol)),
		rec:        opts.Metrics,
		prefix:     prefix,
		maxHistory: opts.MaxHistory,
		deadlines:  make(map[string]time.Time),
	}
	c.manual, _ = opts.Clock.(*risk.ManualClock)
	venue.OnFill(c.handleFill)
	return c, nil
}

func (c *Context) Symbol() string            { return c.symbol }
func (c *Context) Strategy() Strategy        { return c.strat }
func (c *Context) Book() *order.Book         { return c.book }
func (c *Context) Ledger() *execution.Ledger { return c.ledger }

// Stats 返回统计快照
func (c *Context) Stats() Statistics {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// OnBar appends bar to the history and lets the strategy decide. Limit
// orders whose deadline has passed by the bar's time are cancelled first, so
// the strategy sees an accurate working-order state. Orders are placed
// before OnBar returns. The returned slice holds the book's view of each
// order placed for this bar.
func (c *Context) OnBar(ctx context.Context, bar market.Bar, snap market.Snapshot) ([]order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bar.Time > 0 {
		c.advance(bar.Timestamp())
	}
	c.expireDue(c.clock.Now())

	c.bars = append(c.bars, bar)
	if len(c.bars) > c.maxHistory {
		c.bars = append(c.bars[:0:0], c.bars[len(c.bars)-c.maxHistory:]...)
	}
	c.bump(func(s *Statistics) { s.Bars++ })
	c.rec.BarProcessed(c.symbol)
	if obs, ok := c.guard.(risk.PriceObserver); ok {
		if trip, span := obs.Observe(bar.Close, bar.Timestamp()); trip {
			c.log.LogRisk("circuit_open", risk.ErrCircuitOpen, zap.String("window", span), zap.Float64("close", bar.Close))
		}
	}

	in, err := c.input(snap)
	if err != nil {
		return nil, err
	}
	if ra, ok := c.strat.(regimeAware); ok {
		if st, ok := ra.Regime(in); ok {
			c.rec.SetRegime(c.symbol, st.HighVol, st.Illiquid)
		}
	}
	intents, err := c.strat.OnBar(in)
	return c.dispatch(ctx, intents, err)
}

// OnTick runs the tick path against the current bar history.
func (c *Context) OnTick(ctx context.Context, snap market.Snapshot) ([]order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.bump(func(s *Statistics) { s.Ticks++ })
	if !snap.Time.IsZero() {
		c.advance(snap.Time)
	}
	c.expireDue(c.clock.Now())

	in, err := c.input(snap)
	if err != nil {
		return nil, err
	}
	intents, err := c.strat.OnTick(in)
	return c.dispatch(ctx, intents, err)
}

func (c *Context) advance(t time.Time) {
	if c.manual != nil {
		c.manual.Advance(t)
	}
}

func (c *Context) input(snap market.Snapshot) (Input, error) {
	equity, err := c.venue.Balance()
	if err != nil {
		return Input{}, fmt.Errorf("venue balance: %w", err)
	}
	return Input{
		Symbol:          c.symbol,
		Bars:            c.bars,
		Snapshot:        snap,
		Equity:          equity,
		Now:             c.clock.Now(),
		HasWorkingOrder: len(c.book.Active()) > 0,
	}, nil
}

// dispatch 处理策略输出：可恢复错误记为跳过，其余错误上抛；同组意图全部下单或全部撤回。
func (c *Context) dispatch(ctx context.Context, intents []Intent, err error) ([]order.Order, error) {
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientHistory):
			c.rec.DecisionSkipped(c.strat.Name(), c.symbol, "insufficient_history")
			c.log.Debug("decision skipped", zap.Error(err))
			return nil, nil
		case errors.Is(err, ErrInvalidMarketData):
			c.rec.DecisionSkipped(c.strat.Name(), c.symbol, "invalid_market_data")
			c.log.Debug("decision skipped", zap.Error(err))
			return nil, nil
		default:
			c.bump(func(s *Statistics) { s.Errors++ })
			return nil, fmt.Errorf("%s: %w", c.strat.Name(), err)
		}
	}

	if len(intents) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, in := range intents {
		c.bump(func(s *Statistics) { s.Intents++ })
		c.rec.Decision(c.strat.Name(), c.symbol, string(in.Side))
	}
	// 同一次决策的意图是一组：风控整组放行或整组拒绝，任何一腿下单失败则撤回已下的腿
	if err := c.preOrder(intents); err != nil {
		return nil, err
	}

	placed := make([]order.Order, 0, len(intents))
	for _, in := range intents {
		if err := ctx.Err(); err != nil {
			return c.unwind(placed), err
		}
		o, err := c.submit(in)
		if err != nil {
			return c.unwind(placed), err
		}
		placed = append(placed, o)
	}
	return placed, nil
}

func signedQty(in Intent) int64 {
	if in.Side == order.SideSell {
		return -in.Qty
	}
	return in.Qty
}

func (c *Context) preOrder(intents []Intent) error {
	if c.guard == nil {
		return nil
	}
	legs := make([]risk.Leg, len(intents))
	ids := make([]string, len(intents))
	for i, in := range intents {
		legs[i] = risk.Leg{Symbol: in.Symbol, DeltaQty: signedQty(in)}
		ids[i] = in.ID
	}
	var err error
	if bg, ok := c.guard.(risk.BatchGuard); ok {
		err = bg.PreOrderBatch(legs)
	} else {
		for _, leg := range legs {
			if err = c.guard.PreOrder(leg.Symbol, leg.DeltaQty); err != nil {
				break
			}
		}
	}
	if err == nil {
		return nil
	}
	c.bump(func(s *Statistics) { s.Rejects += int64(len(intents)) })
	for range intents {
		c.rec.OrderRejected(c.strat.Name(), c.symbol, "guard")
	}
	c.log.LogRisk("guard_reject", err, zap.Strings("intent_ids", ids), zap.Int("legs", len(legs)))
	return fmt.Errorf("%w: %w", execution.ErrExecutionRejected, err)
}

// unwind 撤回一组中已下的腿，返回撤单后的订单视图。已成交的腿无法撤回，记错误日志。
func (c *Context) unwind(placed []order.Order) []order.Order {
	if len(placed) == 0 {
		return nil
	}
	res := make([]order.Order, 0, len(placed))
	for _, o := range placed {
		latest, cancelled, err := c.cancelOrder(o.ID)
		if err != nil {
			c.log.Error("unwind leg", zap.String("order_id", o.ID), zap.Error(err))
		}
		if cancelled {
			c.rec.OrderCancelled(c.strat.Name(), c.symbol, "leg_unwind")
			c.log.LogOrder("unwound", o.ID, zap.String("leg", o.Symbol))
		}
		if latest.FilledQty > 0 || !latest.Status.IsTerminal() {
			c.log.Error("leg left open after group failure",
				zap.String("order_id", o.ID),
				zap.String("leg", o.Symbol),
				zap.String("status", string(latest.Status)),
				zap.Int64("filled_qty", latest.FilledQty))
		}
		res = append(res, latest)
	}
	return res
}

// submit 下单到订单簿和交易所；风控已由 preOrder 整组完成。
func (c *Context) submit(in Intent) (order.Order, error) {
	o, err := c.book.Place(order.Order{
		Symbol:         in.Symbol,
		Side:           in.Side,
		Type:           in.Type,
		RequestedQty:   in.Qty,
		RequestedPrice: in.Price,
		Tag:            in.ID,
	})
	if err != nil {
		c.bump(func(s *Statistics) { s.Errors++ })
		return order.Order{}, err
	}

	ack, err := c.venue.Place(execution.PlaceRequest{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Qty:     o.RequestedQty,
		Price:   o.RequestedPrice,
		Type:    o.Type,
	})
	if err != nil {
		if _, cerr := c.book.Cancel(o.ID); cerr != nil {
			c.log.Warn("cancel after venue reject failed", zap.String("order_id", o.ID), zap.Error(cerr))
		}
		c.bump(func(s *Statistics) { s.Rejects++ })
		c.rec.OrderRejected(c.strat.Name(), c.symbol, "venue")
		c.rec.OrderCancelled(c.strat.Name(), c.symbol, "venue_reject")
		c.log.LogOrder("rejected", o.ID, zap.Error(err))
		if errors.Is(err, execution.ErrExecutionRejected) {
			return order.Order{}, fmt.Errorf("place %s: %w", o.ID, err)
		}
		return order.Order{}, fmt.Errorf("%w: place %s: %w", execution.ErrExecutionRejected, o.ID, err)
	}
	if ack.OrderID != "" && ack.OrderID != o.ID {
		c.log.Warn("venue acknowledged a different order id", zap.String("order_id", o.ID), zap.String("ack_id", ack.OrderID))
	}

	c.bump(func(s *Statistics) { s.Orders++ })
	c.rec.OrderPlaced(c.strat.Name(), c.symbol, string(o.Type))
	if in.ReferencePrice > 0 {
		c.rec.ObserveSlippage(c.strat.Name(), c.symbol, in.Price-in.ReferencePrice)
	}
	c.log.LogOrder("placed", o.ID,
		zap.String("leg", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.Int64("qty", o.RequestedQty),
		zap.Float64("price", o.RequestedPrice),
		zap.String("reason", in.Reason))

	if o.Type == order.TypeLimit && in.Timeout > 0 {
		deadline := o.PlacedAt.Add(in.Timeout)
		c.setDeadline(o.ID, deadline)
		c.waits.Add(1)
		go c.awaitLimit(o.ID, deadline)
	}

	latest, _ := c.book.Get(o.ID)
	return latest, nil
}

// awaitLimit 等待限价单进入终态。墙钟下由定时器在截止时间撤单，不重下；
// 回放时钟下撤单由 expireDue 按 K 线时间触发，这里只等终态。
func (c *Context) awaitLimit(id string, deadline time.Time) {
	defer c.waits.Done()
	defer c.clearDeadline(id)

	updates, unsubscribe, err := c.book.Watch(id)
	if err != nil {
		c.log.Error("watch limit order", zap.String("order_id", id), zap.Error(err))
		return
	}
	defer unsubscribe()

	var timeout <-chan time.Time
	if c.manual == nil {
		wait := deadline.Sub(c.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok || snap.Status.IsTerminal() {
				return
			}
		case <-timeout:
			timeout = nil
			if c.claimDeadline(id) {
				c.expire(id, deadline)
			}
		}
	}
}

// expireDue 撤掉截止时间不晚于 now 的限价单。
func (c *Context) expireDue(now time.Time) {
	c.deadlineMu.Lock()
	due := make(map[string]time.Time)
	for id, deadline := range c.deadlines {
		if !now.Before(deadline) {
			due[id] = deadline
			delete(c.deadlines, id)
		}
	}
	c.deadlineMu.Unlock()

	for id, deadline := range due {
		c.expire(id, deadline)
	}
}

func (c *Context) setDeadline(id string, deadline time.Time) {
	c.deadlineMu.Lock()
	c.deadlines[id] = deadline
	c.deadlineMu.Unlock()
}

// claimDeadline 取走截止时间；只有取到的一方执行超时撤单。
func (c *Context) claimDeadline(id string) bool {
	c.deadlineMu.Lock()
	defer c.deadlineMu.Unlock()
	if _, ok := c.deadlines[id]; !ok {
		return false
	}
	delete(c.deadlines, id)
	return true
}

func (c *Context) clearDeadline(id string) {
	c.deadlineMu.Lock()
	delete(c.deadlines, id)
	c.deadlineMu.Unlock()
}

// cancelOrder 先撤交易所，交易所确认后才撤订单簿。交易所返回 false 表示订单已在
// 交易所成交，订单保持未决直到成交回报到达。
func (c *Context) cancelOrder(id string) (order.Order, bool, error) {
	ok, err := c.venue.Cancel(id)
	if err != nil {
		o, _ := c.book.Get(id)
		return o, false, fmt.Errorf("venue cancel %s: %w", id, err)
	}
	if !ok {
		o, _ := c.book.Get(id)
		return o, false, nil
	}
	o, err := c.book.Cancel(id)
	if err != nil {
		latest, _ := c.book.Get(id)
		if errors.Is(err, order.ErrInvalidTransition) {
			return latest, false, nil
		}
		return latest, false, err
	}
	return o, true, nil
}

func (c *Context) expire(id string, deadline time.Time) {
	o, cancelled, err := c.cancelOrder(id)
	if err != nil {
		// 交易所撤单失败，下一根 K 线重试
		c.setDeadline(id, deadline)
		c.log.Error("timeout cancel", zap.String("order_id", id), zap.Error(err))
		return
	}
	if !cancelled {
		if !o.Status.IsTerminal() {
			c.log.Info("limit order filled at venue before timeout cancel",
				zap.String("order_id", id),
				zap.Int64("filled_qty", o.FilledQty))
		}
		return
	}
	c.bump(func(s *Statistics) { s.Timeouts++ })
	c.rec.LimitTimeout(c.strat.Name(), c.symbol)
	c.rec.OrderCancelled(c.strat.Name(), c.symbol, "timeout")
	c.log.Warn("limit order cancelled",
		zap.String("order_id", id),
		zap.Int64("filled_qty", o.FilledQty),
		zap.Time("deadline", deadline),
		zap.Error(ErrTimeoutExceeded))
}

// handleFill 是注册到 venue 的成交回调。
func (c *Context) handleFill(orderID string, qty int64, price float64) {
	if !strings.HasPrefix(orderID, c.prefix) {
		return
	}
	c.fillMu.Lock()
	defer c.fillMu.Unlock()

	before, _ := c.book.Get(orderID)
	o, err := c.book.Fill(orderID, qty, price)
	if err != nil {
		c.bump(func(s *Statistics) { s.Errors++ })
		c.log.Error("apply fill", zap.String("order_id", orderID), zap.Int64("qty", qty), zap.Error(err))
		return
	}

	var commission float64
	if before.FilledQty == 0 {
		commission = c.strat.Execution().Commission
	}
	c.ledger.Record(execution.Fill{
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Qty:        qty,
		Price:      price,
		Commission: commission,
	})
	c.bump(func(s *Statistics) { s.Fills++ })
	c.rec.AddCommission(c.strat.Name(), c.symbol, commission)
	if o.Status == order.StatusFilled {
		c.rec.OrderFilled(c.strat.Name(), c.symbol)
	}
	c.log.LogFill(orderID, qty, price, zap.String("status", string(o.Status)), zap.Float64("commission", commission))
}

// Drain 等待所有限价单等待协程结束（成交、撤单或超时）。
func (c *Context) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.waits.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting events and cancels every non-terminal order on
// the venue and then in the book, then waits for pending limit waits to
// resolve. An order the venue can no longer cancel stays open until its fill
// report arrives. Calling it twice is harmless.
func (c *Context) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, o := range c.book.Active() {
		c.clearDeadline(o.ID)
		latest, cancelled, err := c.cancelOrder(o.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !cancelled {
			if !latest.Status.IsTerminal() {
				c.log.LogOrder("awaiting_fill_on_shutdown", o.ID, zap.Int64("filled_qty", latest.FilledQty))
			}
			continue
		}
		c.rec.OrderCancelled(c.strat.Name(), c.symbol, "shutdown")
		c.log.LogOrder("cancelled_on_shutdown", o.ID)
	}
	if err := c.Drain(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Context) bump(f func(*Statistics)) {
	c.statsMu.Lock()
	f(&c.stats)
	c.statsMu.Unlock()
}
