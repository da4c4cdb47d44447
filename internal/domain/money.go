package domain

import "github.com/shopspring/decimal"

// TaxRate is the flat VAT applied to every order. It is intentionally a fixed
// constant, not configurable per item or jurisdiction.
var TaxRate = decimal.NewFromInt(20).Div(decimal.NewFromInt(100))

// Round2 rounds a money amount to two decimal places, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ComputeTotals stamps the rounded per-line totals onto the slice in place and
// returns the aggregate totals. Line totals are rounded individually before
// summing so the stored lines always add up to the stored subtotal, and
// tax = Round2(subtotal * TaxRate).
func ComputeTotals(items []OrderItem) OrderTotals {
	subtotal := decimal.Zero
	for i := range items {
		items[i].LineTotal = Round2(items[i].UnitPrice.Mul(decimal.NewFromInt(items[i].Quantity)))
		subtotal = subtotal.Add(items[i].LineTotal)
	}
	tax := Round2(subtotal.Mul(TaxRate))
	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
