package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle status of a cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusCheckout  CartStatus = "CHECKOUT"
	CartStatusCompleted CartStatus = "COMPLETED"
	CartStatusAbandoned CartStatus = "ABANDONED"
)

// ParseCartStatus accepts a status name in any case.
func ParseCartStatus(s string) (CartStatus, error) {
	switch st := CartStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case CartStatusActive, CartStatusCheckout, CartStatusCompleted, CartStatusAbandoned:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown cart status %q", ErrInvalidInput, s)
	}
}

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Status    CartStatus `json:"status"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem is one line of a cart. Product is the catalog row as read with the
// cart; its price is the live catalog price, not a snapshot.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cartId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
	Product   Product   `json:"product"`
}

// LineTotal is the unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalItems sums item quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is recomputed from the items on every call; it is never stored.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Item returns the line for productID, if any.
func (c *Cart) Item(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// CanCheckout reports whether the cart may be converted into an order.
// A cart that already produced an order (CHECKOUT or COMPLETED) is never
// converted a second time.
func (c *Cart) CanCheckout() error {
	switch c.Status {
	case CartStatusCompleted, CartStatusCheckout:
		return fmt.Errorf("%w: cart %d is %s", ErrAlreadyProcessed, c.ID, c.Status)
	case CartStatusAbandoned:
		return fmt.Errorf("%w: cart %d is abandoned", ErrInvalidState, c.ID)
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: cart %d has no items", ErrInvalidState, c.ID)
	}
	return nil
}

// MaxItemQuantity is the largest quantity a cart line can hold.
const MaxItemQuantity = math.MaxInt32

// ValidateQuantity rejects quantities below one; an item is never stored at zero.
func ValidateQuantity(qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidInput, qty)
	}
	if qty > MaxItemQuantity {
		return fmt.Errorf("%w: quantity must be at most %d, got %d", ErrInvalidInput, MaxItemQuantity, qty)
	}
	return nil
}
