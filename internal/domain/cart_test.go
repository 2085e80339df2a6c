package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID int64, qty int, price string) CartItem {
	return CartItem{
		ProductID: productID,
		Quantity:  qty,
		Product:   Product{ID: productID, Name: "p", Price: decimal.RequireFromString(price)},
	}
}

func TestCartTotalsAreDerivedFromItems(t *testing.T) {
	cart := &Cart{ID: 1, Status: CartStatusActive}
	assert.Equal(t, 0, cart.TotalItems())
	assert.True(t, cart.TotalPrice().IsZero())

	cart.Items = []CartItem{item(1, 2, "10.00"), item(2, 1, "35.00")}
	assert.Equal(t, 3, cart.TotalItems())
	assert.Equal(t, "55.00", cart.TotalPrice().StringFixed(2))

	cart.Items[0].Quantity = 5
	assert.Equal(t, "85.00", cart.TotalPrice().StringFixed(2))

	cart.Items = cart.Items[1:]
	assert.Equal(t, "35.00", cart.TotalPrice().StringFixed(2))
}

func TestCartCanCheckout(t *testing.T) {
	tests := []struct {
		name    string
		cart    Cart
		wantErr error
	}{
		{name: "active with items", cart: Cart{Status: CartStatusActive, Items: []CartItem{item(1, 1, "1")}}},
		{name: "empty", cart: Cart{Status: CartStatusActive}, wantErr: ErrInvalidState},
		{name: "completed", cart: Cart{Status: CartStatusCompleted, Items: []CartItem{item(1, 1, "1")}}, wantErr: ErrAlreadyProcessed},
		{name: "in checkout", cart: Cart{Status: CartStatusCheckout, Items: []CartItem{item(1, 1, "1")}}, wantErr: ErrAlreadyProcessed},
		{name: "abandoned", cart: Cart{Status: CartStatusAbandoned, Items: []CartItem{item(1, 1, "1")}}, wantErr: ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cart.CanCheckout()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseCartStatus(t *testing.T) {
	st, err := ParseCartStatus(" checkout ")
	require.NoError(t, err)
	assert.Equal(t, CartStatusCheckout, st)

	_, err = ParseCartStatus("gone")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateQuantity(t *testing.T) {
	require.NoError(t, ValidateQuantity(1))
	require.ErrorIs(t, ValidateQuantity(0), ErrInvalidInput)
	require.ErrorIs(t, ValidateQuantity(-3), ErrInvalidInput)
	require.NoError(t, ValidateQuantity(MaxItemQuantity))
	require.ErrorIs(t, ValidateQuantity(MaxItemQuantity+1), ErrInvalidInput)
}
