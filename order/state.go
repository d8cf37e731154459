package order

import "time"

// Status represents order lifecycle.
type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPartial   Status = "PARTIALLY_FILLED"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal 终态不再允许任何变更。
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Side is BUY or SELL.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Sign returns +1 for BUY and -1 for SELL.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// Type is MARKET or LIMIT.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Valid reports whether t is a known order type.
func (t Type) Valid() bool { return t == TypeMarket || t == TypeLimit }

// Order is the read-only view handed out by Book. Mutating a returned Order
// has no effect on the tracked record.
type Order struct {
	ID             string
	Symbol         string
	Side           Side
	Type           Type
	RequestedQty   int64
	RequestedPrice float64
	FilledQty      int64
	AvgFillPrice   float64
	Status         Status
	PlacedAt       time.Time
	UpdatedAt      time.Time
	Tag            string
}

// RemainingQty 未成交数量。
func (o Order) RemainingQty() int64 {
	return o.RequestedQty - o.FilledQty
}
