package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
)

// Problem describes why a single cart line failed checkout validation. Kind
// is one of ErrProductNotFound, ErrInvalidQuantity or ErrInsufficientStock.
type Problem struct {
	ProductID   string
	ProductName string
	Kind        error
	Requested   int
	Available   int
}

// Message returns the user-facing description of the problem.
func (p Problem) Message() string {
	switch p.Kind {
	case ErrProductNotFound:
		return fmt.Sprintf("Product with ID %s not found.", p.ProductID)
	case ErrInvalidQuantity:
		return fmt.Sprintf("%s: Invalid quantity.", p.ProductName)
	case ErrInsufficientStock:
		return fmt.Sprintf("%s: Only %d available, but %d requested.", p.ProductName, p.Available, p.Requested)
	default:
		return fmt.Sprintf("%s: %v", p.ProductID, p.Kind)
	}
}

func (p Problem) Error() string { return p.Message() }

func (p Problem) Unwrap() error { return p.Kind }

// CheckoutError aggregates every line problem found while validating a cart.
// Nothing is persisted when it is returned.
type CheckoutError struct {
	Problems []Problem
}

func (e *CheckoutError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message()
	}
	return "checkout rejected: " + strings.Join(msgs, "; ")
}

// Unwrap exposes each problem so errors.Is matches any problem kind.
func (e *CheckoutError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}
