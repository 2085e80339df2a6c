package domain

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold = decimal.RequireFromString("50.00")
	// FlatShippingCost applies below FreeShippingThreshold.
	FlatShippingCost = decimal.RequireFromString("5.99")
	// TaxRate is applied to the subtotal only.
	TaxRate = decimal.RequireFromString("0.10")
)

// Totals is the priced breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// PriceSubtotal derives tax, shipping and total from a subtotal. Tax is
// rounded half-up to cents.
func PriceSubtotal(subtotal decimal.Decimal) Totals {
	shipping := FlatShippingCost
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
