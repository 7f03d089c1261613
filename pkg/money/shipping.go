package money

import "github.com/shopspring/decimal"

// ShippingPolicy applies a flat fee to carts below the free-shipping
// threshold. The policy is configuration, not part of the calculator itself.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// Fee returns the shipping surcharge for the given cart total: the flat fee
// below the threshold, zero at or above it. An empty cart ships for nothing.
func (p ShippingPolicy) Fee(cartTotal decimal.Decimal) decimal.Decimal {
	if cartTotal.IsZero() {
		return decimal.Zero
	}
	if cartTotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}
