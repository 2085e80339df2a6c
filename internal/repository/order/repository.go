package order

import (
	"context"
	"errors"

	"order-fulfillment/internal/domain"
)

// MaxNumberAttempts bounds how often checkout draws a fresh order number
// after a collision on the unique index.
const MaxNumberAttempts = 5

// ErrNumberExhausted is returned when every drawn order number collided.
var ErrNumberExhausted = errors.New("order number attempts exhausted")

// CheckoutInput drives the checkout transaction. Build runs against the
// locked cart and returns the order to insert; NextNumber replaces the
// order number after a collision.
type CheckoutInput struct {
	CartID     int64
	Build      func(c *domain.Cart) (*domain.Order, error)
	NextNumber func() string
}

// Change tells Update what to persist after the callback mutated the order.
type Change struct {
	// Changed false skips every write.
	Changed bool
	// CartStatus, when set, is applied to the originating cart in the same transaction.
	CartStatus domain.CartStatus
}

// Repository persists orders with their item snapshots.
type Repository interface {
	// Checkout locks the cart, inserts the built order with its items and
	// moves the cart to CHECKOUT, all in one transaction.
	Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error)
	// Update locks the order, applies fn and persists the outcome.
	Update(ctx context.Context, orderID int64, fn func(o *domain.Order) (Change, error)) (*domain.Order, Change, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	// FindForCart returns the order created from cartID for userID,
	// preferring a PENDING one.
	FindForCart(ctx context.Context, cartID, userID int64) (*domain.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
}
