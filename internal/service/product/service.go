package product

import (
	"context"
	"fmt"
	"strings"

	"order-fulfillment/internal/domain"
	productrepo "order-fulfillment/internal/repository/product"
)

// Service is the read side of the catalog collaborator.
type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns every product; unavailable ones only when includeUnavailable is set.
func (s *Service) List(ctx context.Context, includeUnavailable bool) ([]domain.Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if includeUnavailable {
		return all, nil
	}
	out := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is required", domain.ErrInvalidInput)
	}
	return s.repo.GetBySKU(ctx, sku)
}
