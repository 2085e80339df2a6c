package user

import (
	"context"

	"order-fulfillment/internal/domain"
)

// Repository is the identity collaborator. Checkout only asks whether a user exists.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
}
