package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names an order lifecycle event.
type EventType string

// Lifecycle events.
const (
	EventPlaced        EventType = "order.placed"
	EventStatusChanged EventType = "order.status_changed"
	EventItemDeleted   EventType = "order.item_deleted"
)

// Event is emitted after a lifecycle change has been committed.
type Event struct {
	Type           EventType
	OrderID        string
	UserID         string
	Status         Status
	PreviousStatus Status
	ItemID         string
	Total          decimal.Decimal
	OccurredAt     time.Time
}

// Publisher delivers committed events to downstream consumers. Delivery is
// best effort; failures never undo the committed change.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
