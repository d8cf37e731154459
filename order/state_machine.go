package order

import "fmt"

// transition 状态转换
type transition struct {
	From Status
	To   Status
}

// legalTransitions 所有合法的状态转换；终态（FILLED, CANCELLED）没有出边。
var legalTransitions = map[transition]bool{
	{StatusPlaced, StatusPartial}:   true,
	{StatusPlaced, StatusFilled}:    true,
	{StatusPlaced, StatusCancelled}: true,

	{StatusPartial, StatusPartial}:   true, // 多次部分成交
	{StatusPartial, StatusFilled}:    true,
	{StatusPartial, StatusCancelled}: true,
}

// ValidateTransition reports whether from -> to is a legal lifecycle step.
// Unlike a plain lookup, it returns an error wrapping ErrInvalidTransition so
// callers can match with errors.Is.
func ValidateTransition(from, to Status) error {
	if !legalTransitions[transition{From: from, To: to}] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// AllowedTransitions 返回当前状态所有合法的目标状态。
func AllowedTransitions(current Status) []Status {
	allowed := make([]Status, 0, 3)
	for _, to := range []Status{StatusPartial, StatusFilled, StatusCancelled} {
		if legalTransitions[transition{From: current, To: to}] {
			allowed = append(allowed, to)
		}
	}
	return allowed
}
