package execution

import (
	"github.com/shopspring/decimal"

	"strategy-sandbox/order"
)

// DefaultPrecision is the number of decimals executed prices are rounded to.
const DefaultPrecision = 2

// ApplySlippage worsens requestedPrice by slippageTicks*tickSize against the
// taker (BUY pays more, SELL receives less) and rounds half away from zero to
// precision decimals. A negative precision falls back to DefaultPrecision.
func ApplySlippage(requestedPrice float64, side order.Side, slippageTicks, tickSize float64, precision int) float64 {
	if precision < 0 {
		precision = DefaultPrecision
	}
	price := decimal.NewFromFloat(requestedPrice)
	slip := decimal.NewFromFloat(slippageTicks).Mul(decimal.NewFromFloat(tickSize))
	if side == order.SideSell {
		price = price.Sub(slip)
	} else {
		price = price.Add(slip)
	}
	return price.Round(int32(precision)).InexactFloat64()
}

// Execution is a simulated execution: price and commission stay separate so
// gross and net PnL can be reported independently.
type Execution struct {
	RequestedPrice float64
	Price          float64
	Commission     float64
}

// Simulator models slippage and commission for one instrument.
type Simulator struct {
	TickSize      float64
	SlippageTicks float64
	Precision     int
	Commission    float64
}

// Execute turns a requested price into an executed price.
func (s Simulator) Execute(requestedPrice float64, side order.Side) Execution {
	return Execution{
		RequestedPrice: requestedPrice,
		Price:          ApplySlippage(requestedPrice, side, s.SlippageTicks, s.TickSize, s.Precision),
		Commission:     s.Commission,
	}
}

// WithSlippage returns a copy using a different slippage budget.
func (s Simulator) WithSlippage(ticks float64) Simulator {
	s.SlippageTicks = ticks
	return s
}

// Round 按精度四舍五入价格。
func (s Simulator) Round(price float64) float64 {
	p := s.Precision
	if p < 0 {
		p = DefaultPrecision
	}
	return decimal.NewFromFloat(price).Round(int32(p)).InexactFloat64()
}
