package product

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"order-fulfillment/internal/domain"
)

type stubRepo struct {
	products []domain.Product
	err      error
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) List(_ context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubRepo) Upsert(_ context.Context, _ domain.Product) (*domain.Product, error) {
	return nil, errors.New("not used")
}

func catalog() *stubRepo {
	return &stubRepo{products: []domain.Product{
		{ID: 1, SKU: "A", Name: "Alpha", Price: decimal.RequireFromString("10.00"), Available: true},
		{ID: 2, SKU: "B", Name: "Beta", Price: decimal.RequireFromString("35.00"), Available: false},
	}}
}

func TestList_FiltersUnavailable(t *testing.T) {
	svc := New(catalog())

	got, err := svc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].SKU != "A" {
		t.Fatalf("expected only available products, got %+v", got)
	}

	all, err := svc.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
}

func TestList_PropagatesError(t *testing.T) {
	svc := New(&stubRepo{err: errors.New("boom")})
	if _, err := svc.List(context.Background(), false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetByID(t *testing.T) {
	svc := New(catalog())
	if _, err := svc.GetByID(context.Background(), 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p, err := svc.GetByID(context.Background(), 2)
	if err != nil || p.Name != "Beta" {
		t.Fatalf("unexpected %+v %v", p, err)
	}
}

func TestGetBySKU(t *testing.T) {
	svc := New(catalog())
	if _, err := svc.GetBySKU(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	p, err := svc.GetBySKU(context.Background(), " A ")
	if err != nil || p.ID != 1 {
		t.Fatalf("unexpected %+v %v", p, err)
	}
}
