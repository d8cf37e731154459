package sim

import (
	"fmt"
	"sync"

	"strategy-sandbox/execution"
	"strategy-sandbox/market"
	"strategy-sandbox/order"
)

// SandboxConfig 沙盒交易场所参数。
type SandboxConfig struct {
	InitialBalance float64
	// FillMarketOrders 市价单在下单时按请求价全部成交。
	FillMarketOrders bool
	// MatchLimitOrders 限价单在之后的 bar 穿价时成交（见 MatchBar）。
	MatchLimitOrders bool
	// AsyncFills 成交回报在独立 goroutine 中投递。
	AsyncFills bool
}

// SandboxOrder 是沙盒内部记录的订单视图。
type SandboxOrder struct {
	Request   execution.PlaceRequest
	Filled    int64
	Cancelled bool
}

func (o SandboxOrder) open() bool {
	return !o.Cancelled && o.Filled < o.Request.Qty
}

// Sandbox is an in-memory execution venue. It never touches a real
// exchange; its balance stays at the configured initial value.
type Sandbox struct {
	cfg SandboxConfig

	mu       sync.Mutex
	orders   map[string]*SandboxOrder
	sequence []string
	counter  int64
	handlers []execution.FillHandler
	reject   func(execution.PlaceRequest) error

	deliveries sync.WaitGroup
}

func NewSandbox(cfg SandboxConfig) *Sandbox {
	return &Sandbox{
		cfg:    cfg,
		orders: make(map[string]*SandboxOrder),
	}
}

// SetRejectFunc installs a hook that can decline orders (margin, symbol
// halts and so on). A non-nil error is reported as ErrExecutionRejected.
func (s *Sandbox) SetRejectFunc(f func(execution.PlaceRequest) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = f
}

// Place 登记订单；空 OrderID 时由沙盒分配。
func (s *Sandbox) Place(req execution.PlaceRequest) (execution.Ack, error) {
	if req.Qty <= 0 {
		return execution.Ack{}, fmt.Errorf("%w: qty %d", execution.ErrExecutionRejected, req.Qty)
	}
	if req.Type == order.TypeLimit && req.Price <= 0 {
		return execution.Ack{}, fmt.Errorf("%w: limit price %v", execution.ErrExecutionRejected, req.Price)
	}

	s.mu.Lock()
	if s.reject != nil {
		if err := s.reject(req); err != nil {
			s.mu.Unlock()
			return execution.Ack{}, fmt.Errorf("%w: %v", execution.ErrExecutionRejected, err)
		}
	}
	s.counter++
	if req.OrderID == "" {
		req.OrderID = fmt.Sprintf("SBX-%06d", s.counter)
	}
	if _, exists := s.orders[req.OrderID]; exists {
		s.mu.Unlock()
		return execution.Ack{}, fmt.Errorf("%w: duplicate order id %s", execution.ErrExecutionRejected, req.OrderID)
	}
	rec := &SandboxOrder{Request: req}
	s.orders[req.OrderID] = rec
	s.sequence = append(s.sequence, req.OrderID)

	var fills []pendingFill
	if req.Type == order.TypeMarket && s.cfg.FillMarketOrders {
		rec.Filled = req.Qty
		fills = append(fills, pendingFill{id: req.OrderID, qty: req.Qty, price: req.Price})
	}
	handlers := s.handlersLocked()
	s.mu.Unlock()

	s.dispatch(handlers, fills)
	return execution.Ack{OrderID: req.OrderID, InitialStatus: order.StatusPlaced}, nil
}

// Cancel 撤销未完成订单；已完成、已撤销或未知订单返回 false。
func (s *Sandbox) Cancel(orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[orderID]
	if !ok || !rec.open() {
		return false, nil
	}
	rec.Cancelled = true
	return true, nil
}

func (s *Sandbox) Balance() (float64, error) {
	return s.cfg.InitialBalance, nil
}

func (s *Sandbox) OnFill(h execution.FillHandler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Fill reports a (partial) execution of an open order, as an external venue
// would.
func (s *Sandbox) Fill(orderID string, qty int64, price float64) error {
	s.mu.Lock()
	rec, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown sandbox order %s", orderID)
	}
	if !rec.open() {
		s.mu.Unlock()
		return fmt.Errorf("sandbox order %s is not open", orderID)
	}
	if qty <= 0 || rec.Filled+qty > rec.Request.Qty {
		s.mu.Unlock()
		return fmt.Errorf("fill qty %d invalid for %s (filled %d of %d)", qty, orderID, rec.Filled, rec.Request.Qty)
	}
	rec.Filled += qty
	handlers := s.handlersLocked()
	s.mu.Unlock()

	s.dispatch(handlers, []pendingFill{{id: orderID, qty: qty, price: price}})
	return nil
}

// MatchBar fills resting limit orders of symbol that bar trades through: a
// BUY when bar.Low <= limit, a SELL when bar.High >= limit. Fills happen at
// the limit price for the whole remaining quantity. It returns the number of
// orders filled.
func (s *Sandbox) MatchBar(symbol string, bar market.Bar) int {
	if !s.cfg.MatchLimitOrders {
		return 0
	}
	s.mu.Lock()
	var fills []pendingFill
	for _, id := range s.sequence {
		rec := s.orders[id]
		req := rec.Request
		if req.Symbol != symbol || req.Type != order.TypeLimit || !rec.open() {
			continue
		}
		crossed := (req.Side == order.SideBuy && bar.Low <= req.Price) ||
			(req.Side == order.SideSell && bar.High >= req.Price)
		if !crossed {
			continue
		}
		remaining := req.Qty - rec.Filled
		rec.Filled = req.Qty
		fills = append(fills, pendingFill{id: id, qty: remaining, price: req.Price})
	}
	handlers := s.handlersLocked()
	s.mu.Unlock()

	s.dispatch(handlers, fills)
	return len(fills)
}

// Orders 返回所有订单快照（按下单顺序）。
func (s *Sandbox) Orders() []SandboxOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]SandboxOrder, 0, len(s.sequence))
	for _, id := range s.sequence {
		res = append(res, *s.orders[id])
	}
	return res
}

// Wait 等待所有异步成交回报投递完成。
func (s *Sandbox) Wait() {
	s.deliveries.Wait()
}

type pendingFill struct {
	id    string
	qty   int64
	price float64
}

func (s *Sandbox) handlersLocked() []execution.FillHandler {
	return append([]execution.FillHandler(nil), s.handlers...)
}

// dispatch 在锁外调用回调，避免回调重入沙盒时死锁。
func (s *Sandbox) dispatch(handlers []execution.FillHandler, fills []pendingFill) {
	if len(fills) == 0 || len(handlers) == 0 {
		return
	}
	deliver := func() {
		for _, f := range fills {
			for _, h := range handlers {
				h(f.id, f.qty, f.price)
			}
		}
	}
	if !s.cfg.AsyncFills {
		deliver()
		return
	}
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		deliver()
	}()
}
