package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind selects the bus topic an event is published to.
type EventKind string

const (
	EventKindUser         EventKind = "user"
	EventKindOrder        EventKind = "order"
	EventKindNotification EventKind = "notification"
)

// Event types. The set is open; consumers must ignore types they do not know.
const (
	EventCartCreated         = "CART_CREATED"
	EventItemAdded           = "ITEM_ADDED"
	EventItemQuantityUpdated = "ITEM_QUANTITY_UPDATED"
	EventItemRemoved         = "ITEM_REMOVED"
	EventCartCleared         = "CART_CLEARED"
	EventCartDeleted         = "CART_DELETED"
	EventCartStatusChanged   = "CART_STATUS_CHANGED"
	EventCartAbandoned       = "CART_ABANDONED"

	EventOrderCreated       = "ORDER_CREATED"
	EventOrderPaid          = "ORDER_PAID"
	EventOrderStatusUpdated = "ORDER_STATUS_UPDATED"
	EventOrderCancelled     = "ORDER_CANCELLED"
	EventOrderRefunded      = "ORDER_REFUNDED"
	EventPaymentFailed      = "PAYMENT_FAILED"

	EventOrderConfirmation = "ORDER_CONFIRMATION"
	EventPaymentSucceeded  = "PAYMENT_SUCCEEDED"
)

// Event is an immutable state-change notification. ID lets consumers
// de-duplicate; the publisher itself never does.
type Event struct {
	ID        string         `json:"eventId"`
	Type      string         `json:"eventType"`
	Kind      EventKind      `json:"kind"`
	UserID    int64          `json:"userId"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

func newEvent(kind EventKind, eventType string, userID int64, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Kind:      kind,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func NewUserEvent(eventType string, userID int64, payload map[string]any) Event {
	return newEvent(EventKindUser, eventType, userID, payload)
}

func NewOrderEvent(eventType string, userID int64, payload map[string]any) Event {
	return newEvent(EventKindOrder, eventType, userID, payload)
}

func NewNotificationEvent(eventType string, userID int64, payload map[string]any) Event {
	return newEvent(EventKindNotification, eventType, userID, payload)
}
