package product

import (
	"context"

	"order-fulfillment/internal/domain"
)

// Repository is the catalog collaborator. Checkout only reads from it; the
// importer and seed tooling write through Upsert.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
