package execution

import (
	"errors"

	"strategy-sandbox/order"
)

// ErrExecutionRejected is returned when the venue (or a pre-order guard)
// declines an order. Nothing retries automatically.
var ErrExecutionRejected = errors.New("execution rejected")

// PlaceRequest is what the orchestrator sends to a venue. OrderID is the
// identifier allocated by the order book; the venue reports fills and accepts
// cancels against it.
type PlaceRequest struct {
	OrderID string
	Symbol  string
	Side    order.Side
	Qty     int64
	Price   float64
	Type    order.Type
}

// Ack 是下单回执。
type Ack struct {
	OrderID       string
	InitialStatus order.Status
}

// FillHandler receives asynchronous execution reports from a venue.
type FillHandler func(orderID string, qty int64, price float64)

// Venue is the execution collaborator: a sandbox simulator or an adapter to
// a real broker.
type Venue interface {
	Place(req PlaceRequest) (Ack, error)
	Cancel(orderID string) (bool, error)
	Balance() (float64, error)
	OnFill(h FillHandler)
}
