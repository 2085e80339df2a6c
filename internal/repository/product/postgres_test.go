package product

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/testutil/pgtest"
)

func TestPostgres_UpsertAndGet(t *testing.T) {
	pool := pgtest.New(t)
	ctx := t.Context()
	repo := NewPostgres(pool, nil)

	sku := gofakeit.LetterN(8)
	created, err := repo.Upsert(ctx, domain.Product{
		SKU:       sku,
		Name:      "Mug",
		Price:     decimal.RequireFromString("12.50"),
		Available: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := repo.Upsert(ctx, domain.Product{
		SKU:         sku,
		Name:        "Large mug",
		Description: "holds more",
		Price:       decimal.RequireFromString("14.00"),
		Available:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Large mug", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("14.00")))

	bySKU, err := repo.GetBySKU(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySKU.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgres_GetMissing(t *testing.T) {
	pool := pgtest.New(t)
	repo := NewPostgres(pool, nil)

	_, err := repo.GetByID(t.Context(), 999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
