package strategy

import "errors"

var (
	// ErrInsufficientHistory 历史 K 线不足，策略本轮不出信号。
	ErrInsufficientHistory = errors.New("insufficient bar history")
	// ErrInvalidMarketData 期权链或 IV 历史缺失。
	ErrInvalidMarketData = errors.New("invalid market data")
	// ErrTimeoutExceeded 限价单在截止时间前未完全成交，已被强制撤单。
	ErrTimeoutExceeded = errors.New("limit order timeout exceeded")
	// ErrContextClosed Shutdown 之后不再接受事件。
	ErrContextClosed = errors.New("strategy context closed")
	ErrInvalidConfig  = errors.New("invalid strategy config")
	ErrUnknownKind    = errors.New("unknown strategy type")
)
