package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"order-fulfillment/internal/domain"
	cartrepo "order-fulfillment/internal/repository/cart"
	"order-fulfillment/internal/testutil/pgtest"
)

type orderRepositorySuite struct {
	suite.Suite

	pool  *pgxpool.Pool
	repo  Repository
	carts cartrepo.Repository
}

func TestOrderRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres-backed suite in -short mode")
	}
	suite.Run(t, new(orderRepositorySuite))
}

func (s *orderRepositorySuite) SetupSuite() {
	s.pool = pgtest.New(s.T())
	s.repo = NewPostgres(s.pool)
	s.carts = cartrepo.NewPostgres(s.pool)
}

func (s *orderRepositorySuite) SetupTest() {
	pgtest.Reset(s.T(), s.pool)
}

// filledCart creates a cart with 2 x A @ 10.00 and 1 x B @ 35.00.
func (s *orderRepositorySuite) filledCart(ctx context.Context) (userID, cartID, productA int64) {
	userID = pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productA = pgtest.InsertProduct(s.T(), s.pool, "SKU-A", "A", "10.00")
	productB := pgtest.InsertProduct(s.T(), s.pool, "SKU-B", "B", "35.00")
	c, _, err := s.carts.Create(ctx, userID)
	s.Require().NoError(err)
	_, err = s.carts.AddItem(ctx, c.ID, productA, 2)
	s.Require().NoError(err)
	_, err = s.carts.AddItem(ctx, c.ID, productB, 1)
	s.Require().NoError(err)
	return userID, c.ID, productA
}

func snapshotBuilder(number string) func(c *domain.Cart) (*domain.Order, error) {
	return func(c *domain.Cart) (*domain.Order, error) {
		if err := c.CanCheckout(); err != nil {
			return nil, err
		}
		return domain.NewOrderFromCart(c, number, "USD", time.Now()), nil
	}
}

func (s *orderRepositorySuite) TestCheckoutPersistsSnapshotAndAdvancesCart() {
	ctx := s.T().Context()
	_, cartID, productA := s.filledCart(ctx)

	created, err := s.repo.Checkout(ctx, CheckoutInput{CartID: cartID, Build: snapshotBuilder("ORD-1")})
	s.Require().NoError(err)
	s.NotZero(created.ID)
	s.Equal("60.50", created.TotalAmount.StringFixed(2))

	c, err := s.carts.GetByID(ctx, cartID)
	s.Require().NoError(err)
	s.Equal(domain.CartStatusCheckout, c.Status)

	_, err = s.pool.Exec(ctx, `UPDATE products SET price = 99.00, name = 'renamed' WHERE id = $1`, productA)
	s.Require().NoError(err)

	got, err := s.repo.GetByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.OrderNumber, got.OrderNumber)
	s.True(got.TotalAmount.Equal(created.TotalAmount))
	diff := cmp.Diff(created.Items, got.Items, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }))
	s.Empty(diff)
	s.Equal("A", got.Items[0].ProductName)
	s.Equal("10.00", got.Items[0].UnitPrice.StringFixed(2))
}

func (s *orderRepositorySuite) TestCheckoutRollsBackOnBuildError() {
	ctx := s.T().Context()
	userID := pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	c, _, err := s.carts.Create(ctx, userID)
	s.Require().NoError(err)

	_, err = s.repo.Checkout(ctx, CheckoutInput{CartID: c.ID, Build: snapshotBuilder("ORD-EMPTY")})
	s.ErrorIs(err, domain.ErrInvalidState)

	var count int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&count))
	s.Zero(count)
	got, err := s.carts.GetByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(domain.CartStatusActive, got.Status)
}

func (s *orderRepositorySuite) TestCheckoutRetriesOrderNumberCollision() {
	ctx := s.T().Context()
	_, firstCart, _ := s.filledCart(ctx)
	_, err := s.repo.Checkout(ctx, CheckoutInput{CartID: firstCart, Build: snapshotBuilder("ORD-DUP")})
	s.Require().NoError(err)

	_, secondCart, _ := s.filledCartForNewUser(ctx)
	created, err := s.repo.Checkout(ctx, CheckoutInput{
		CartID:     secondCart,
		Build:      snapshotBuilder("ORD-DUP"),
		NextNumber: func() string { return "ORD-FRESH" },
	})
	s.Require().NoError(err)
	s.Equal("ORD-FRESH", created.OrderNumber)

	_, thirdCart, _ := s.filledCartForNewUser(ctx)
	_, err = s.repo.Checkout(ctx, CheckoutInput{
		CartID:     thirdCart,
		Build:      snapshotBuilder("ORD-DUP"),
		NextNumber: func() string { return "ORD-FRESH" },
	})
	s.True(errors.Is(err, ErrNumberExhausted))

	got, err := s.carts.GetByID(ctx, thirdCart)
	s.Require().NoError(err)
	s.Equal(domain.CartStatusActive, got.Status)
}

func (s *orderRepositorySuite) filledCartForNewUser(ctx context.Context) (userID, cartID, productID int64) {
	userID = pgtest.InsertUser(s.T(), s.pool, gofakeit.Email())
	productID = pgtest.InsertProduct(s.T(), s.pool, gofakeit.LetterN(10), "P", "5.00")
	c, _, err := s.carts.Create(ctx, userID)
	s.Require().NoError(err)
	_, err = s.carts.AddItem(ctx, c.ID, productID, 1)
	s.Require().NoError(err)
	return userID, c.ID, productID
}

func (s *orderRepositorySuite) TestUpdateMarksPaidAndCompletesCart() {
	ctx := s.T().Context()
	userID, cartID, _ := s.filledCart(ctx)
	created, err := s.repo.Checkout(ctx, CheckoutInput{CartID: cartID, Build: snapshotBuilder("ORD-PAY")})
	s.Require().NoError(err)

	found, err := s.repo.FindForCart(ctx, cartID, userID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)

	updated, change, err := s.repo.Update(ctx, created.ID, func(o *domain.Order) (Change, error) {
		changed, err := o.MarkPaid("pi_123", time.Now())
		return Change{Changed: changed, CartStatus: domain.CartStatusCompleted}, err
	})
	s.Require().NoError(err)
	s.True(change.Changed)
	s.Equal(domain.OrderStatusPaid, updated.Status)

	c, err := s.carts.GetByID(ctx, cartID)
	s.Require().NoError(err)
	s.Equal(domain.CartStatusCompleted, c.Status)

	byPayment, err := s.repo.FindByPaymentID(ctx, "pi_123")
	s.Require().NoError(err)
	s.Equal(created.ID, byPayment.ID)

	_, change, err = s.repo.Update(ctx, created.ID, func(o *domain.Order) (Change, error) {
		changed, err := o.MarkPaid("pi_123", time.Now())
		return Change{Changed: changed}, err
	})
	s.Require().NoError(err)
	s.False(change.Changed)
}

func (s *orderRepositorySuite) TestUpdateErrorLeavesOrderUntouched() {
	ctx := s.T().Context()
	_, cartID, _ := s.filledCart(ctx)
	created, err := s.repo.Checkout(ctx, CheckoutInput{CartID: cartID, Build: snapshotBuilder("ORD-X")})
	s.Require().NoError(err)

	_, _, err = s.repo.Update(ctx, created.ID, func(o *domain.Order) (Change, error) {
		_, err := o.TransitionTo(domain.OrderStatusDelivered, time.Now())
		return Change{Changed: true}, err
	})
	s.ErrorIs(err, domain.ErrInvalidState)

	got, err := s.repo.GetByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, got.Status)
}

func (s *orderRepositorySuite) TestLookups() {
	ctx := s.T().Context()
	userID, cartID, _ := s.filledCart(ctx)
	created, err := s.repo.Checkout(ctx, CheckoutInput{CartID: cartID, Build: snapshotBuilder("ORD-LOOK")})
	s.Require().NoError(err)

	byNumber, err := s.repo.GetByNumber(ctx, "ORD-LOOK")
	s.Require().NoError(err)
	s.Equal(created.ID, byNumber.ID)

	list, err := s.repo.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Len(list[0].Items, 2)

	list, err = s.repo.ListByUser(ctx, userID+1000)
	s.Require().NoError(err)
	s.Empty(list)

	_, err = s.repo.GetByNumber(ctx, "nope")
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.repo.FindByPaymentID(ctx, "nope")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *orderRepositorySuite) TestDeletingCartKeepsOrder() {
	ctx := s.T().Context()
	_, cartID, _ := s.filledCart(ctx)
	created, err := s.repo.Checkout(ctx, CheckoutInput{CartID: cartID, Build: snapshotBuilder("ORD-KEEP")})
	s.Require().NoError(err)

	s.Require().NoError(s.carts.Delete(ctx, cartID))

	got, err := s.repo.GetByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Nil(got.CartID)
	s.Len(got.Items, 2)
}
