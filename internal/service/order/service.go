package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/metrics"
	orderrepo "order-fulfillment/internal/repository/order"
	"order-fulfillment/internal/tracing"
)

// Service builds orders from carts and drives their status afterwards.
type Service struct {
	repo     orderRepo
	events   publisher
	numbers  numberSource
	currency string
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type orderRepo interface {
	Checkout(ctx context.Context, in orderrepo.CheckoutInput) (*domain.Order, error)
	Update(ctx context.Context, orderID int64, fn func(o *domain.Order) (orderrepo.Change, error)) (*domain.Order, orderrepo.Change, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	FindForCart(ctx context.Context, cartID, userID int64) (*domain.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
}

type publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

type numberSource interface {
	Next() string
}

type Options struct {
	Currency     string
	NumberPrefix string
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

func New(repo orderrepo.Repository, events publisher, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &Service{
		repo:     repo,
		events:   events,
		numbers:  domain.NewOrderNumberGenerator(opts.NumberPrefix),
		currency: opts.Currency,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Checkout freezes the cart into a PENDING order and moves the cart to
// CHECKOUT in one transaction. ORDER_CREATED is published after commit.
func (s *Service) Checkout(ctx context.Context, cartID int64) (_ *domain.Order, err error) {
	ctx, span := tracing.Start(ctx, "order.Checkout", attribute.Int64("cart.id", cartID))
	defer func() { tracing.End(span, err) }()

	o, err := s.repo.Checkout(ctx, orderrepo.CheckoutInput{
		CartID: cartID,
		Build: func(c *domain.Cart) (*domain.Order, error) {
			if err := c.CanCheckout(); err != nil {
				return nil, err
			}
			return domain.NewOrderFromCart(c, s.numbers.Next(), s.currency, s.now().UTC()), nil
		},
		NextNumber: s.numbers.Next,
	})
	if err != nil {
		s.metrics.Checkout(checkoutOutcome(err))
		s.log(ctx).Info("checkout refused", zap.Int64("cart_id", cartID), zap.Error(err))
		return nil, err
	}
	s.metrics.Checkout(metrics.OutcomeSuccess)
	span.SetAttributes(attribute.String("order.number", o.OrderNumber))

	s.log(ctx).Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int64("cart_id", cartID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, o.UserID, orderPayload(o, map[string]any{
		"itemCount": len(o.Items),
		"subtotal":  o.Subtotal.StringFixed(2),
		"tax":       o.Tax.StringFixed(2),
		"shipping":  o.ShippingCost.StringFixed(2),
	})))
	return o, nil
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

// CompleteOrder marks the order PAID with paymentRef and completes its
// originating cart. Repeating it with the same reference returns the order
// with changed=false and publishes nothing.
func (s *Service) CompleteOrder(ctx context.Context, orderID int64, paymentRef string) (_ *domain.Order, changed bool, err error) {
	ctx, span := tracing.Start(ctx, "order.CompleteOrder", attribute.Int64("order.id", orderID))
	defer func() { tracing.End(span, err) }()

	if paymentRef == "" {
		return nil, false, fmt.Errorf("%w: payment reference is required", domain.ErrInvalidInput)
	}
	o, change, err := s.repo.Update(ctx, orderID, func(o *domain.Order) (orderrepo.Change, error) {
		changed, err := o.MarkPaid(paymentRef, s.now().UTC())
		return orderrepo.Change{Changed: changed, CartStatus: domain.CartStatusCompleted}, err
	})
	if err != nil {
		return nil, false, err
	}
	if !change.Changed {
		s.log(ctx).Info("order already paid", zap.Int64("order_id", o.ID), zap.String("payment_id", paymentRef))
		return o, false, nil
	}
	if o.CartID == nil {
		s.log(ctx).Warn("paid order has no originating cart", zap.Int64("order_id", o.ID))
	}

	s.log(ctx).Info("order paid", zap.Int64("order_id", o.ID), zap.String("payment_id", paymentRef))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderPaid, o.UserID, orderPayload(o, map[string]any{
		"paymentId": paymentRef,
	})))
	s.publish(ctx, domain.NewNotificationEvent(domain.EventOrderConfirmation, o.UserID, orderPayload(o, nil)))
	return o, true, nil
}

// UpdateStatus applies an administrative transition. CANCELLED is routed
// through Cancel; PAID also completes the originating cart.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if status == domain.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, "")
	}
	var from domain.OrderStatus
	o, change, err := s.repo.Update(ctx, orderID, func(o *domain.Order) (orderrepo.Change, error) {
		from = o.Status
		changed, err := o.TransitionTo(status, s.now().UTC())
		ch := orderrepo.Change{Changed: changed}
		if status == domain.OrderStatusPaid {
			ch.CartStatus = domain.CartStatusCompleted
		}
		return ch, err
	})
	if err != nil {
		return nil, err
	}
	if change.Changed {
		s.log(ctx).Info("order status updated", zap.Int64("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(status)))
		s.publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusUpdated, o.UserID, orderPayload(o, map[string]any{
			"from": from,
			"to":   status,
		})))
	}
	return o, nil
}

// Cancel sets CANCELLED and records reason in the order notes. Orders that
// shipped, were delivered or were refunded are refused.
func (s *Service) Cancel(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	o, change, err := s.repo.Update(ctx, orderID, func(o *domain.Order) (orderrepo.Change, error) {
		changed, err := o.Cancel(reason, s.now().UTC())
		return orderrepo.Change{Changed: changed}, err
	})
	if err != nil {
		return nil, err
	}
	if change.Changed {
		s.log(ctx).Info("order cancelled", zap.Int64("order_id", o.ID), zap.String("reason", reason))
		s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCancelled, o.UserID, orderPayload(o, map[string]any{
			"reason": reason,
		})))
	}
	return o, nil
}

// MarkRefunded moves the order paid with paymentRef to REFUNDED.
func (s *Service) MarkRefunded(ctx context.Context, paymentRef string) (*domain.Order, bool, error) {
	found, err := s.repo.FindByPaymentID(ctx, paymentRef)
	if err != nil {
		return nil, false, err
	}
	o, change, err := s.repo.Update(ctx, found.ID, func(o *domain.Order) (orderrepo.Change, error) {
		changed, err := o.TransitionTo(domain.OrderStatusRefunded, s.now().UTC())
		return orderrepo.Change{Changed: changed}, err
	})
	if err != nil {
		return nil, false, err
	}
	if change.Changed {
		s.log(ctx).Info("order refunded", zap.Int64("order_id", o.ID), zap.String("payment_id", paymentRef))
		s.publish(ctx, domain.NewOrderEvent(domain.EventOrderRefunded, o.UserID, orderPayload(o, map[string]any{
			"paymentId": paymentRef,
		})))
	}
	return o, change.Changed, nil
}

func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// FindForCart returns the order created from cartID by userID.
func (s *Service) FindForCart(ctx context.Context, cartID, userID int64) (*domain.Order, error) {
	return s.repo.FindForCart(ctx, cartID, userID)
}

func orderPayload(o *domain.Order, extra map[string]any) map[string]any {
	payload := map[string]any{
		"orderId":     o.ID,
		"orderNumber": o.OrderNumber,
		"status":      o.Status,
		"totalAmount": o.TotalAmount.StringFixed(2),
		"currency":    o.Currency,
	}
	if o.CartID != nil {
		payload["cartId"] = *o.CartID
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, ev)
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.logger)
}
