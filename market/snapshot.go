package market

import (
	"fmt"
	"math"
	"time"
)

// OptionQuote is one row of an option chain. Expiry is unix seconds.
type OptionQuote struct {
	Strike     float64
	Expiry     int64
	CallMid    float64
	PutMid     float64
	LotSize    int64
	CallSymbol string
	PutSymbol  string
}

// DaysToExpiry returns the fractional days between now and the expiry.
func (q OptionQuote) DaysToExpiry(now time.Time) float64 {
	return float64(q.Expiry-now.Unix()) / 86400.0
}

// LegSymbols returns the call/put symbols, deriving them from the underlying
// when the chain did not carry them.
func (q OptionQuote) LegSymbols(underlying string) (call, put string) {
	call, put = q.CallSymbol, q.PutSymbol
	if call != "" && put != "" {
		return call, put
	}
	base := fmt.Sprintf("%s%s%s", underlying, time.Unix(q.Expiry, 0).UTC().Format("060102"), formatStrike(q.Strike))
	if call == "" {
		call = base + "CE"
	}
	if put == "" {
		put = base + "PE"
	}
	return call, put
}

func formatStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return fmt.Sprintf("%.0f", strike)
	}
	return fmt.Sprintf("%g", strike)
}

// Snapshot 是 tick 路径上的外部行情快照。
type Snapshot struct {
	Time         time.Time
	SpotPrice    float64
	BidAskSpread float64
	CurrentATR   float64
	OptionChain  []OptionQuote
	IVHistory    []float64
}
