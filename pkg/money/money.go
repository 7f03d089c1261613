// Package money holds the pure pricing arithmetic for cart lines. Every
// operation is total for well-formed input and decimal-safe, so repeated
// recomputation of the same cart never drifts.
package money

import (
	"github.com/avelinehq/cartside/pkg/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns the unit price after the optional percentage
// discount. A nil discount means the list price applies unchanged.
func EffectivePrice(unitListPrice decimal.Decimal, discountPercent *int) decimal.Decimal {
	if discountPercent == nil {
		return unitListPrice
	}
	d := clampPercent(*discountPercent)
	remaining := hundred.Sub(decimal.NewFromInt(int64(d)))
	return unitListPrice.Mul(remaining).Div(hundred)
}

// LineTotal is the effective unit price multiplied by the line quantity.
func LineTotal(line types.CartLine) decimal.Decimal {
	unit := EffectivePrice(line.UnitListPrice, line.DiscountPercent)
	return unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// CartTotal sums the line totals of the provided lines.
func CartTotal(lines []types.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return total
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
