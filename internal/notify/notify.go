// Package notify delivers customer-facing order notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/money"
)

// Kind identifies what happened to an order.
type Kind string

const (
	KindOrderCreated  Kind = "order.created"
	KindStatusChanged Kind = "order.status_changed"
)

// Event is a notification about one order.
type Event struct {
	Kind    Kind
	OrderID uuid.UUID
	UserID  int64
	Status  order.Status
	Total   decimal.Decimal
	Title   string
	Body    string
}

// Notifier sends events to customers. Delivery is best effort; callers log
// and drop errors.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// OrderCreated builds the event sent after checkout.
func OrderCreated(o *order.Order) Event {
	return Event{
		Kind:    KindOrderCreated,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  o.Status,
		Total:   o.TotalAmount,
		Title:   order.StatusPending.Label(),
		Body:    fmt.Sprintf("Order %s for %s has been placed.", shortID(o.ID), money.Format(o.TotalAmount)),
	}
}

// StatusChanged builds the event sent after an operator moves an order.
func StatusChanged(o *order.Order) Event {
	return Event{
		Kind:    KindStatusChanged,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  o.Status,
		Total:   o.TotalAmount,
		Title:   o.Status.Label(),
		Body:    fmt.Sprintf("Order %s is now %s.", shortID(o.ID), o.Status),
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
