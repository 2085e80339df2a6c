package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{name: "above threshold ships free", subtotal: "55.00", tax: "5.50", shipping: "0", total: "60.50"},
		{name: "exactly threshold ships free", subtotal: "50.00", tax: "5.00", shipping: "0", total: "55.00"},
		{name: "below threshold pays flat rate", subtotal: "49.99", tax: "5.00", shipping: "5.99", total: "60.98"},
		{name: "tax rounds half up", subtotal: "10.05", tax: "1.01", shipping: "5.99", total: "17.05"},
		{name: "zero subtotal", subtotal: "0", tax: "0", shipping: "5.99", total: "5.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceSubtotal(decimal.RequireFromString(tt.subtotal))
			assert.True(t, got.Tax.Equal(decimal.RequireFromString(tt.tax)), "tax = %s", got.Tax)
			assert.True(t, got.Shipping.Equal(decimal.RequireFromString(tt.shipping)), "shipping = %s", got.Shipping)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total = %s", got.Total)
		})
	}
}
