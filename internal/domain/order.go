package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// orderTransitions lists the statuses reachable from each status.
// CANCELLED and REFUNDED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  nil,
	OrderStatusRefunded:   nil,
}

// ParseOrderStatus accepts a status name in any case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID           int64           `json:"id"`
	OrderNumber  string          `json:"orderNumber"`
	UserID       int64           `json:"userId"`
	CartID       *int64          `json:"cartId,omitempty"`
	Status       OrderStatus     `json:"status"`
	Items        []OrderItem     `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Currency     string          `json:"currency"`
	PaymentID    *string         `json:"paymentId,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// OrderItem is a frozen copy of the catalog row taken at checkout.
type OrderItem struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"orderId"`
	ProductID          int64           `json:"productId"`
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription,omitempty"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	Quantity           int             `json:"quantity"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

// NewOrderFromCart snapshots the cart into a PENDING order. The caller is
// expected to have checked Cart.CanCheckout.
func NewOrderFromCart(cart *Cart, number, currency string, now time.Time) *Order {
	items := make([]OrderItem, 0, len(cart.Items))
	subtotal := decimal.Zero
	for _, line := range cart.Items {
		lineTotal := line.LineTotal()
		subtotal = subtotal.Add(lineTotal)
		items = append(items, OrderItem{
			ProductID:          line.ProductID,
			ProductName:        line.Product.Name,
			ProductDescription: line.Product.Description,
			UnitPrice:          line.Product.Price,
			Quantity:           line.Quantity,
			Subtotal:           lineTotal,
		})
	}

	totals := PriceSubtotal(subtotal)
	cartID := cart.ID
	return &Order{
		OrderNumber:  number,
		UserID:       cart.UserID,
		CartID:       &cartID,
		Status:       OrderStatusPending,
		Items:        items,
		Subtotal:     totals.Subtotal,
		Tax:          totals.Tax,
		ShippingCost: totals.Shipping,
		TotalAmount:  totals.Total,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkPaid moves a PENDING order to PAID. Repeating it with the same
// reference on a PAID order is a no-op and reports changed=false.
func (o *Order) MarkPaid(paymentRef string, now time.Time) (changed bool, err error) {
	if o.Status == OrderStatusPaid && o.PaymentID != nil && *o.PaymentID == paymentRef {
		return false, nil
	}
	if o.Status != OrderStatusPending {
		return false, fmt.Errorf("%w: order %s is %s", ErrInvalidState, o.OrderNumber, o.Status)
	}
	ref := paymentRef
	o.Status = OrderStatusPaid
	o.PaymentID = &ref
	o.UpdatedAt = now
	return true, nil
}

// TransitionTo applies an administrative status change. Setting the current
// status again is a no-op.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) (changed bool, err error) {
	if o.Status == next {
		return false, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidState, o.OrderNumber, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return true, nil
}

// Cancel sets CANCELLED unless the order has shipped, was delivered or was refunded.
func (o *Order) Cancel(reason string, now time.Time) (changed bool, err error) {
	switch o.Status {
	case OrderStatusCancelled:
		return false, nil
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusRefunded:
		return false, fmt.Errorf("%w: order %s is %s and cannot be cancelled", ErrInvalidState, o.OrderNumber, o.Status)
	}
	o.Status = OrderStatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		o.Notes = &reason
	}
	o.UpdatedAt = now
	return true, nil
}
