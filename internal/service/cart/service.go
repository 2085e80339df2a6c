package cart

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/logging"
	cartrepo "order-fulfillment/internal/repository/cart"
)

// Service is the cart lifecycle engine. Operations are keyed by cart id;
// ownership is checked by the caller.
type Service struct {
	repo     cartRepo
	products productReader
	users    userChecker
	events   publisher
	logger   *zap.Logger
	now      func() time.Time
}

type cartRepo interface {
	Create(ctx context.Context, userID int64) (*domain.Cart, bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) (cartrepo.AddResult, error)
	SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID int64) error
	ClearItems(ctx context.Context, cartID int64) (int64, error)
	Delete(ctx context.Context, cartID int64) error
	SetStatus(ctx context.Context, cartID int64, status domain.CartStatus) error
	AbandonIdle(ctx context.Context, before time.Time) ([]domain.Cart, error)
}

type productReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type userChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

func New(repo cartrepo.Repository, products productReader, users userChecker, events publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		products: products,
		users:    users,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrGetActive returns the user's ACTIVE cart, creating it when absent.
func (s *Service) CreateOrGetActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}

	c, created, err := s.repo.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		s.log(ctx).Info("cart created", zap.Int64("cart_id", c.ID), zap.Int64("user_id", userID))
		s.publish(ctx, domain.EventCartCreated, c, nil)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, cartID int64) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, cartID)
}

// AddItem adds quantity of productID, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, cartID, productID int64, quantity int) (*domain.Cart, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, fmt.Errorf("%w: product %d is not available", domain.ErrInvalidState, productID)
	}

	res, err := s.repo.AddItem(ctx, cartID, productID, quantity)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	eventType := domain.EventItemQuantityUpdated
	if res.Inserted {
		eventType = domain.EventItemAdded
	}
	s.publish(ctx, eventType, c, map[string]any{
		"productId": productID,
		"quantity":  res.Quantity,
		"added":     quantity,
	})
	return c, nil
}

// UpdateItemQuantity sets the quantity of an existing line.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, productID int64, quantity int) (*domain.Cart, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SetItemQuantity(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventItemQuantityUpdated, c, map[string]any{
		"productId": productID,
		"quantity":  quantity,
	})
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, productID int64) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, cartID, productID); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventItemRemoved, c, map[string]any{"productId": productID})
	return c, nil
}

// Clear removes every item and leaves the cart ACTIVE.
func (s *Service) Clear(ctx context.Context, cartID int64) (*domain.Cart, error) {
	removed, err := s.repo.ClearItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventCartCleared, c, map[string]any{"removedItems": removed})
	return c, nil
}

// Delete removes the cart and its items. Orders created from it keep their
// snapshots and lose the cart reference.
func (s *Service) Delete(ctx context.Context, cartID int64) error {
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, cartID); err != nil {
		return err
	}
	s.log(ctx).Info("cart deleted", zap.Int64("cart_id", cartID), zap.String("status", string(c.Status)))
	s.publish(ctx, domain.EventCartDeleted, c, nil)
	return nil
}

// TransitionStatus overwrites the status without checking the transition.
func (s *Service) TransitionStatus(ctx context.Context, cartID int64, status domain.CartStatus) (*domain.Cart, error) {
	before, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, cartID, status); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventCartStatusChanged, c, map[string]any{
		"from": before.Status,
		"to":   status,
	})
	return c, nil
}

// AbandonIdle marks ACTIVE carts untouched for idleFor as ABANDONED and
// returns how many were moved.
func (s *Service) AbandonIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	if idleFor <= 0 {
		return 0, fmt.Errorf("%w: idle threshold must be positive", domain.ErrInvalidInput)
	}
	carts, err := s.repo.AbandonIdle(ctx, s.now().Add(-idleFor))
	if err != nil {
		return 0, err
	}
	for i := range carts {
		s.publish(ctx, domain.EventCartAbandoned, &carts[i], map[string]any{"idleFor": idleFor.String()})
	}
	if len(carts) > 0 {
		s.log(ctx).Info("abandoned idle carts", zap.Int("count", len(carts)), zap.Duration("idle_for", idleFor))
	}
	return len(carts), nil
}

func (s *Service) publish(ctx context.Context, eventType string, c *domain.Cart, extra map[string]any) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"cartId":     c.ID,
		"status":     c.Status,
		"totalItems": c.TotalItems(),
		"totalPrice": c.TotalPrice().StringFixed(2),
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.events.Publish(ctx, domain.NewUserEvent(eventType, c.UserID, payload))
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.logger)
}
