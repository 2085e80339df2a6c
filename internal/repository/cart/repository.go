package cart

import (
	"context"
	"time"

	"order-fulfillment/internal/domain"
)

// AddResult reports what an add-item upsert did to the line.
type AddResult struct {
	Inserted bool
	Quantity int
}

// Repository persists carts and their items. Item mutations bump the cart's
// updated_at in the same transaction and fail with domain.ErrInvalidState
// unless the cart is ACTIVE.
type Repository interface {
	// Create inserts an ACTIVE cart for userID unless one exists; created is
	// false when the existing cart is returned.
	Create(ctx context.Context, userID int64) (cart *domain.Cart, created bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)
	GetActiveByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (AddResult, error)
	SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID int64) error
	ClearItems(ctx context.Context, cartID int64) (removed int64, err error)
	Delete(ctx context.Context, cartID int64) error
	SetStatus(ctx context.Context, cartID int64, status domain.CartStatus) error
	// AbandonIdle moves ACTIVE carts untouched since before to ABANDONED and
	// returns them without items.
	AbandonIdle(ctx context.Context, before time.Time) ([]domain.Cart, error)
}
