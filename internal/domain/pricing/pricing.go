// Package pricing computes order totals. It is pure: no I/O, no clock.
package pricing

import "github.com/shopspring/decimal"

// Policy holds the pricing rules applied to every order.
type Policy struct {
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee decimal.Decimal
	// TaxRate is the GST rate applied to the discounted subtotal, e.g. 0.18.
	TaxRate decimal.Decimal
}

// DefaultPolicy is the reference policy: free shipping at 500.00, flat 50.00
// fee below that, 18% GST.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.NewFromInt(50),
		TaxRate:               decimal.NewFromFloat(0.18),
	}
}

// Item is a priced line item.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the full price breakdown of an order. Invariant:
// Total = Subtotal - Discount + ShippingCost + TaxAmount, all fields
// rounded to 2 decimal places and non-negative.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
}

// Subtotal returns the sum of unit price times quantity across items,
// rounded to 2 decimal places.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return round(sum)
}

// Compute prices an order. The discount is applied before shipping and tax:
// tax is charged on the discounted subtotal, and the shipping threshold is
// evaluated against the undiscounted subtotal. A discount larger than the
// subtotal is clamped so the taxable amount never goes negative.
func (p Policy) Compute(items []Item, discount decimal.Decimal) Quote {
	subtotal := Subtotal(items)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = round(discount)

	shipping := p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = round(shipping)

	tax := round(subtotal.Sub(discount).Mul(p.TaxRate))
	total := round(subtotal.Sub(discount).Add(shipping).Add(tax))

	return Quote{
		Subtotal:     subtotal,
		Discount:     discount,
		ShippingCost: shipping,
		TaxAmount:    tax,
		Total:        total,
	}
}

// round applies half-up rounding to 2 decimal places. Monetary values here
// are non-negative, so decimal's round-half-away-from-zero is half-up.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
