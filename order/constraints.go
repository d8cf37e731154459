package order

import "fmt"

// SymbolConstraints 描述交易对的数量限制。
type SymbolConstraints struct {
	MinQty int64
	MaxQty int64
}

// Validate 检查订单数量是否在允许范围内。
func (c SymbolConstraints) Validate(qty int64) error {
	if c.MinQty > 0 && qty < c.MinQty {
		return fmt.Errorf("qty %d < minQty %d", qty, c.MinQty)
	}
	if c.MaxQty > 0 && qty > c.MaxQty {
		return fmt.Errorf("qty %d > maxQty %d", qty, c.MaxQty)
	}
	return nil
}
