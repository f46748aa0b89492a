package order

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

// ParseStatus converts a raw status token. Unknown tokens yield
// ErrInvalidStatus.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !slices.Contains(Statuses, s) {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Order is a placed customer order. Only Status changes after creation;
// staff may also delete individual items.
type Order struct {
	ID        string
	UserID    string
	Status    Status
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total sums the item subtotals.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ProductIDs returns the distinct product IDs of the order's items in
// ascending order.
func (o *Order) ProductIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Item is a single order line. Price is captured at checkout and never
// changes afterwards.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Subtotal returns Price * Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for orders. The *ForUpdate
// methods lock the returned rows until the enclosing transaction ends.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
	GetItemForUpdate(ctx context.Context, orderID, itemID string) (*Item, error)
	DeleteItem(ctx context.Context, orderID, itemID string) error
}

// Repos groups the repositories bound to a single transaction.
type Repos struct {
	Products product.Locker
	Stock    stock.Ledger
	Orders   Repository
}

// Transactor runs fn inside one all-or-nothing transaction. If fn returns an
// error every write made through r is rolled back and the error is returned.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// CartSource is the cart capability checkout consumes.
type CartSource interface {
	Contents(ctx context.Context, sessionKey string) (cart.Cart, error)
	Clear(ctx context.Context, sessionKey string) error
}
