package risk

import "errors"

var (
	ErrSingleExceed = errors.New("single order exceed")
	ErrDailyExceed  = errors.New("daily volume exceed")
	ErrNetExceed    = errors.New("net exposure exceed")
	ErrTooFrequent  = errors.New("too frequent order")
	ErrPnLTooLow    = errors.New("realized pnl below limit")
	ErrCircuitOpen  = errors.New("price shock circuit open")
)
