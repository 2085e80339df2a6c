package cart

import (
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/testutil/pgtest"
)

type cartRepositorySuite struct {
	suite.Suite

	pool *pgxpool.Pool
	repo Repository
}

func TestCartRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres-backed suite in -short mode")
	}
	suite.Run(t, new(cartRepositorySuite))
}

func (s *cartRepositorySuite) SetupSuite() {
	s.pool = pgtest.New(s.T())
	s.repo = NewPostgres(s.pool)
}

func (s *cartRepositorySuite) SetupTest() {
	pgtest.Reset(s.T(), s.pool)
}

func (s *cartRepositorySuite) TestCreateIsIdempotentPerUser() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())

	first, created, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(domain.CartStatusActive, first.Status)
	s.Empty(first.Items)

	second, created, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)

	var count int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM carts WHERE user_id = $1`, userID).Scan(&count))
	s.Equal(1, count)
}

func (s *cartRepositorySuite) TestAddItemMergesQuantities() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID := pgtest.InsertProduct(s.T(), s.pool, "SKU-X", "X", "4.25")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)

	res, err := s.repo.AddItem(ctx, c.ID, productID, 2)
	s.Require().NoError(err)
	s.Equal(AddResult{Inserted: true, Quantity: 2}, res)

	res, err = s.repo.AddItem(ctx, c.ID, productID, 3)
	s.Require().NoError(err)
	s.Equal(AddResult{Inserted: false, Quantity: 5}, res)

	got, err := s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 1)
	s.Equal(5, got.Items[0].Quantity)
	s.Equal("X", got.Items[0].Product.Name)
	s.Equal("21.25", got.TotalPrice().StringFixed(2))
	s.True(got.UpdatedAt.After(c.UpdatedAt) || got.UpdatedAt.Equal(c.UpdatedAt))
}

func (s *cartRepositorySuite) TestAddItemRejectsOverflowingQuantity() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID := pgtest.InsertProduct(s.T(), s.pool, "SKU-BIG", "Big", "1.00")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)

	_, err = s.repo.AddItem(ctx, c.ID, productID, domain.MaxItemQuantity)
	s.Require().NoError(err)

	_, err = s.repo.AddItem(ctx, c.ID, productID, 1)
	s.Require().ErrorIs(err, domain.ErrInvalidInput)

	got, err := s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 1)
	s.Equal(domain.MaxItemQuantity, got.Items[0].Quantity)
}

func (s *cartRepositorySuite) TestConcurrentAddsNeverDuplicateRows() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID := pgtest.InsertProduct(s.T(), s.pool, "SKU-C", "C", "1.00")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.repo.AddItem(ctx, c.ID, productID, 1)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 1)
	s.Equal(8, got.Items[0].Quantity)
}

func (s *cartRepositorySuite) TestItemMutations() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	a := pgtest.InsertProduct(s.T(), s.pool, "SKU-A", "A", "10.00")
	b := pgtest.InsertProduct(s.T(), s.pool, "SKU-B", "B", "35.00")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)

	_, err = s.repo.AddItem(ctx, c.ID, a, 1)
	s.Require().NoError(err)
	_, err = s.repo.AddItem(ctx, c.ID, b, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.SetItemQuantity(ctx, c.ID, a, 4))
	s.ErrorIs(s.repo.SetItemQuantity(ctx, c.ID, a+b, 1), domain.ErrNotFound)

	got, err := s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(5, got.TotalItems())
	s.Equal("75.00", got.TotalPrice().StringFixed(2))

	s.Require().NoError(s.repo.RemoveItem(ctx, c.ID, b))
	s.ErrorIs(s.repo.RemoveItem(ctx, c.ID, b), domain.ErrNotFound)

	removed, err := s.repo.ClearItems(ctx, c.ID)
	s.Require().NoError(err)
	s.EqualValues(1, removed)

	got, err = s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(got.Items)
	s.Equal(domain.CartStatusActive, got.Status)
}

func (s *cartRepositorySuite) TestMissingCart() {
	ctx := s.T().Context()

	_, err := s.repo.GetByID(ctx, 404)
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.repo.AddItem(ctx, 404, 1, 1)
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.repo.ClearItems(ctx, 404)
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(s.repo.Delete(ctx, 404), domain.ErrNotFound)
	s.ErrorIs(s.repo.SetStatus(ctx, 404, domain.CartStatusCompleted), domain.ErrNotFound)
}

func (s *cartRepositorySuite) TestDeleteCascadesItems() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID := pgtest.InsertProduct(s.T(), s.pool, "SKU-D", "D", "2.00")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)
	_, err = s.repo.AddItem(ctx, c.ID, productID, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(ctx, c.ID))

	var count int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM cart_items WHERE cart_id = $1`, c.ID).Scan(&count))
	s.Zero(count)
}

func (s *cartRepositorySuite) TestSetStatusRespectsSingleActiveCart() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	first, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.SetStatus(ctx, first.ID, domain.CartStatusCheckout))

	second, created, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)
	s.True(created)
	s.NotEqual(first.ID, second.ID)

	s.ErrorIs(s.repo.SetStatus(ctx, first.ID, domain.CartStatusActive), domain.ErrAlreadyExists)
}

func (s *cartRepositorySuite) TestItemsFrozenOutsideActive() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID := pgtest.InsertProduct(s.T(), s.pool, "SKU-F", "F", "3.00")
	c, _, err := s.repo.Create(ctx, userID)
	s.Require().NoError(err)
	_, err = s.repo.AddItem(ctx, c.ID, productID, 1)
	s.Require().NoError(err)
	s.Require().NoError(s.repo.SetStatus(ctx, c.ID, domain.CartStatusCheckout))

	_, err = s.repo.AddItem(ctx, c.ID, productID, 1)
	s.ErrorIs(err, domain.ErrInvalidState)
	s.ErrorIs(s.repo.RemoveItem(ctx, c.ID, productID), domain.ErrInvalidState)

	got, err := s.repo.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 1)
	s.Equal(1, got.Items[0].Quantity)
}

func (s *cartRepositorySuite) TestAbandonIdle() {
	ctx := s.T().Context()
	stale := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	fresh := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	staleCart, _, err := s.repo.Create(ctx, stale)
	s.Require().NoError(err)
	_, _, err = s.repo.Create(ctx, fresh)
	s.Require().NoError(err)

	_, err = s.pool.Exec(ctx, `UPDATE carts SET updated_at = now() - interval '2 hours' WHERE id = $1`, staleCart.ID)
	s.Require().NoError(err)

	abandoned, err := s.repo.AbandonIdle(ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(abandoned, 1)
	s.Equal(staleCart.ID, abandoned[0].ID)
	s.Equal(stale, abandoned[0].UserID)
	s.Equal(domain.CartStatusAbandoned, abandoned[0].Status)
}
