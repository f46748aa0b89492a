package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
//
// StockQuantity is owned by the stock ledger and is never negative.
type Product struct {
	ID            string
	Name          string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Locker reads products while holding a write lock on their rows for the
// rest of the enclosing transaction. Implementations acquire locks in
// ascending ID order and silently skip IDs that do not exist.
type Locker interface {
	LockByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Index maps products by ID.
func Index(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
