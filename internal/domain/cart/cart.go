// Package cart implements the session-scoped shopping cart.
//
// A cart is advisory: it never reserves stock. Every mutation re-reads the
// product's live stock, and checkout validates the whole cart again under row
// locks. Carts are persisted through a Store using an explicit
// read-modify-write cycle: load a snapshot, apply the operation, save the
// full snapshot back.
package cart

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// Sentinel errors for cart operations.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNotInCart       = errors.New("product not in cart")
)

// InsufficientStockError reports that a cart mutation would exceed the
// product's available stock. The cart is left unchanged.
type InsufficientStockError struct {
	ProductID string
	Available int
	InCart    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d items of product %s available, %d already in cart",
		e.Available, e.ProductID, e.InCart)
}

// Cart maps product IDs to positive quantities.
type Cart map[string]int

// IDs returns the product IDs in the cart in ascending order.
func (c Cart) IDs() []string {
	return slices.Sorted(maps.Keys(c))
}

// Clone returns a copy of c that is safe to mutate.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	maps.Copy(out, c)
	return out
}

// Items returns the total number of units across all entries.
func (c Cart) Items() int {
	var n int
	for _, q := range c {
		n += q
	}
	return n
}

// Store persists carts keyed by session. Load returns an empty, non-nil cart
// when nothing is stored. Save replaces the stored cart entirely; saving an
// empty cart removes it.
type Store interface {
	Load(ctx context.Context, sessionKey string) (Cart, error)
	Save(ctx context.Context, sessionKey string, c Cart) error
}

// Catalog is the subset of the product repository the cart reads from.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Result is the outcome of a single cart mutation. It is populated even when
// the mutation is rejected, so HTML and JSON callers can render it the same
// way.
type Result struct {
	Success       bool
	Message       string
	ProductID     string
	Quantity      int
	StockQuantity int
}
