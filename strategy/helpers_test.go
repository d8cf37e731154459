package strategy

import (
	"sync"

	"strategy-sandbox/execution"
	"strategy-sandbox/market"
	"strategy-sandbox/order"
)

type fakeVenue struct {
	mu         sync.Mutex
	balance    float64
	fillMarket bool
	rejectErr  error
	placed     []execution.PlaceRequest
	cancelled  []string
	handlers   []execution.FillHandler

	// rejectLeg 非空时只拒绝该合约
	rejectLeg string
	// cancelHook 非空时代替默认的撤单确认
	cancelHook func(id string) bool
}

func newFakeVenue(balance float64) *fakeVenue {
	return &fakeVenue{balance: balance, fillMarket: true}
}

func (v *fakeVenue) Place(req execution.PlaceRequest) (execution.Ack, error) {
	v.mu.Lock()
	if v.rejectErr != nil && (v.rejectLeg == "" || v.rejectLeg == req.Symbol) {
		err := v.rejectErr
		v.mu.Unlock()
		return execution.Ack{}, err
	}
	v.placed = append(v.placed, req)
	handlers := append([]execution.FillHandler(nil), v.handlers...)
	fill := v.fillMarket && req.Type == order.TypeMarket
	v.mu.Unlock()

	if fill {
		for _, h := range handlers {
			h(req.OrderID, req.Qty, req.Price)
		}
	}
	return execution.Ack{OrderID: req.OrderID, InitialStatus: order.StatusPlaced}, nil
}

func (v *fakeVenue) Cancel(id string) (bool, error) {
	v.mu.Lock()
	v.cancelled = append(v.cancelled, id)
	hook := v.cancelHook
	v.mu.Unlock()
	if hook != nil {
		return hook(id), nil
	}
	return true, nil
}

func (v *fakeVenue) Balance() (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

func (v *fakeVenue) OnFill(h execution.FillHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handlers = append(v.handlers, h)
}

// deliver 模拟交易所异步成交回报
func (v *fakeVenue) deliver(id string, qty int64, price float64) {
	v.mu.Lock()
	handlers := append([]execution.FillHandler(nil), v.handlers...)
	v.mu.Unlock()
	for _, h := range handlers {
		h(id, qty, price)
	}
}

func (v *fakeVenue) placedRequests() []execution.PlaceRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]execution.PlaceRequest(nil), v.placed...)
}

func (v *fakeVenue) cancelledIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.cancelled...)
}

// linearBars closes start, start+step, ...; high/low = close ± 0.5.
func linearBars(n int, start, step, volume float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = market.Bar{
			Time:   int64(1_700_000_000 + i*60),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}

// meanRevertBars 60 根平盘后接 5 根同向单边，收盘价远离 VWAP 且 RSI 极端。
func meanRevertBars(step float64) []market.Bar {
	bars := linearBars(60, 100, 0, 1000)
	last := bars[len(bars)-1]
	for i := 1; i <= 5; i++ {
		c := 100 + float64(i)*step
		bars = append(bars, market.Bar{
			Time: last.Time + int64(i*60), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000,
		})
	}
	return bars
}
