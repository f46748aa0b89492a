// Package stock defines the ledger that owns product stock quantities.
//
// Every mutation of a product's stock goes through a Ledger so the
// non-negativity invariant has a single enforcement point. Ledger
// implementations are expected to be called inside a transaction that already
// holds the product row lock (see product.Locker).
package stock

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNegativeQuantity is returned when a ledger operation is called with a
// negative quantity.
var ErrNegativeQuantity = errors.New("stock quantity must not be negative")

// Ledger adjusts authoritative stock counts.
type Ledger interface {
	// Deduct lowers stock by quantity, flooring at zero. It does not fail on
	// insufficient stock; callers check availability beforehand.
	Deduct(ctx context.Context, productID string, quantity int) (remaining int, err error)
	// Restore raises stock by quantity.
	Restore(ctx context.Context, productID string, quantity int) (remaining int, err error)
	// Set overwrites stock with an absolute quantity.
	Set(ctx context.Context, productID string, quantity int) error
}

// Check validates a ledger quantity argument.
func Check(quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// Clamp returns current minus quantity, floored at zero.
func Clamp(current, quantity int) int {
	if quantity >= current {
		return 0
	}
	return current - quantity
}
