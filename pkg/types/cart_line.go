package types

import "github.com/shopspring/decimal"

// CartLine is one product entry in a cart. Price and discount are snapshots
// captured when the product was first added; they are not re-fetched from the
// catalog on later mutations.
type CartLine struct {
	ProductID       string          `json:"product_id"`
	UnitListPrice   decimal.Decimal `json:"unit_list_price"`
	DiscountPercent *int            `json:"discount_percent,omitempty"`
	Quantity        int             `json:"quantity"`
}

// PriceSnapshot carries the catalog values captured at add time.
type PriceSnapshot struct {
	UnitListPrice   decimal.Decimal `json:"unit_list_price"`
	DiscountPercent *int            `json:"discount_percent,omitempty"`
}

// CloneLines deep-copies a line slice so snapshots handed to collaborators
// cannot alias the store's backing array.
func CloneLines(lines []CartLine) []CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, line := range lines {
		out[i] = line
		if line.DiscountPercent != nil {
			d := *line.DiscountPercent
			out[i].DiscountPercent = &d
		}
	}
	return out
}
