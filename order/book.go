package order

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownOrder      = errors.New("unknown order")
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
)

// Book 是订单生命周期状态机：按 ID 索引的订单仓库，所有变更（下单、成交、撤单、
// ID 分配）都在同一把锁内串行执行。外部只能拿到拷贝。
type Book struct {
	mu          sync.Mutex
	orders      map[string]*Order
	watchers    map[string][]chan Order
	constraints map[string]SymbolConstraints
	seq         uint64
	prefix      string
	now         func() time.Time
}

// NewBook creates an empty book. Generated IDs take the form prefix+sequence.
func NewBook(prefix string) *Book {
	if prefix == "" {
		prefix = "S"
	}
	return &Book{
		orders:      make(map[string]*Order),
		watchers:    make(map[string][]chan Order),
		constraints: make(map[string]SymbolConstraints),
		prefix:      prefix,
		now:         time.Now,
	}
}

// SetClock overrides the time source used for PlacedAt/UpdatedAt.
func (b *Book) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
}

// SetConstraints 设置交易对的数量限制。
func (b *Book) SetConstraints(symbol string, c SymbolConstraints) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constraints[symbol] = c
}

// Place registers a new order in PLACED state. An empty ID is replaced by a
// generated one.
func (b *Book) Place(o Order) (Order, error) {
	if o.Symbol == "" {
		return Order{}, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if !o.Side.Valid() {
		return Order{}, fmt.Errorf("%w: side %q", ErrInvalidOrder, o.Side)
	}
	if !o.Type.Valid() {
		return Order{}, fmt.Errorf("%w: type %q", ErrInvalidOrder, o.Type)
	}
	if o.RequestedQty <= 0 {
		return Order{}, fmt.Errorf("%w: qty %d must be > 0", ErrInvalidOrder, o.RequestedQty)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.constraints[o.Symbol]; ok {
		if err := c.Validate(o.RequestedQty); err != nil {
			return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}
	if o.ID == "" {
		b.seq++
		o.ID = fmt.Sprintf("%s%06d", b.prefix, b.seq)
	}
	if _, exists := b.orders[o.ID]; exists {
		return Order{}, fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = b.now()
	}
	o.Status = StatusPlaced
	o.FilledQty = 0
	o.AvgFillPrice = 0
	o.UpdatedAt = o.PlacedAt

	stored := o
	b.orders[o.ID] = &stored
	return stored, nil
}

// Fill applies an execution report. The order moves to FILLED once the
// cumulative quantity reaches the requested quantity, otherwise to
// PARTIALLY_FILLED. An overfill is rejected without mutating anything.
func (b *Book) Fill(id string, qty int64, price float64) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if qty <= 0 {
		return *o, fmt.Errorf("%w: %d", ErrInvalidFill, qty)
	}
	if o.Status.IsTerminal() {
		return *o, fmt.Errorf("%w: fill on %s order %s", ErrInvalidTransition, o.Status, id)
	}
	if o.FilledQty+qty > o.RequestedQty {
		return *o, fmt.Errorf("%w: %d would exceed remaining %d", ErrInvalidFill, qty, o.RemainingQty())
	}

	next := StatusPartial
	if o.FilledQty+qty == o.RequestedQty {
		next = StatusFilled
	}
	if err := ValidateTransition(o.Status, next); err != nil {
		return *o, err
	}

	total := o.AvgFillPrice*float64(o.FilledQty) + price*float64(qty)
	o.FilledQty += qty
	o.AvgFillPrice = total / float64(o.FilledQty)
	o.Status = next
	o.UpdatedAt = b.now()

	b.notifyLocked(o)
	return *o, nil
}

// Cancel 撤单。已撤销的订单再次撤单视为成功（幂等）；已成交订单撤单返回
// ErrInvalidTransition。
func (b *Book) Cancel(id string) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if o.Status == StatusCancelled {
		return *o, nil
	}
	if err := ValidateTransition(o.Status, StatusCancelled); err != nil {
		return *o, err
	}
	o.Status = StatusCancelled
	o.UpdatedAt = b.now()

	b.notifyLocked(o)
	return *o, nil
}

// Get returns a copy of the order.
func (b *Book) Get(id string) (Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Active 返回所有非终态订单（拷贝），按下单时间排序。
func (b *Book) Active() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]Order, 0)
	for _, o := range b.orders {
		if !o.Status.IsTerminal() {
			res = append(res, *o)
		}
	}
	sortOrders(res)
	return res
}

// List 返回全部订单（拷贝）。
func (b *Book) List() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		res = append(res, *o)
	}
	sortOrders(res)
	return res
}

// Watch subscribes to updates of one order. The channel always holds the
// latest snapshot (older undelivered snapshots are replaced) and is closed
// once the order reaches a terminal state. The returned func unsubscribes.
func (b *Book) Watch(id string) (<-chan Order, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[id]
	if !ok {
		return nil, func() {}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	ch := make(chan Order, 1)
	if o.Status.IsTerminal() {
		ch <- *o
		close(ch)
		return ch, func() {}, nil
	}
	b.watchers[id] = append(b.watchers[id], ch)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.watchers[id]
		for i, c := range list {
			if c == ch {
				b.watchers[id] = append(list[:i], list[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.watchers[id]) == 0 {
			delete(b.watchers, id)
		}
	}
	return ch, unsubscribe, nil
}

// notifyLocked 在持锁状态下推送最新快照；终态时关闭所有订阅。
func (b *Book) notifyLocked(o *Order) {
	list := b.watchers[o.ID]
	for _, ch := range list {
		select {
		case ch <- *o:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- *o
		}
	}
	if o.Status.IsTerminal() {
		for _, ch := range list {
			close(ch)
		}
		delete(b.watchers, o.ID)
	}
}

func sortOrders(list []Order) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].PlacedAt.Equal(list[j].PlacedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].PlacedAt.Before(list[j].PlacedAt)
	})
}
