package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// User-facing messages.
const (
	msgAdded           = "Item added to cart"
	msgUpdated         = "Quantity updated"
	msgRemoved         = "Item removed from cart"
	msgNotInCart       = "Item not in cart"
	msgInvalidQuantity = "Quantity must be greater than 0."
	msgNotFound        = "Product not found"
)

// Service implements cart operations on top of a Store.
type Service struct {
	store   Store
	catalog Catalog
}

// NewService creates a cart Service.
func NewService(store Store, catalog Catalog) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
	}
}

// Add raises the quantity of productID by delta. It fails with
// *InsufficientStockError when the new quantity would exceed the product's
// stock, leaving the cart untouched.
func (s *Service) Add(ctx context.Context, sessionKey, productID string, delta int) (Result, error) {
	res := Result{ProductID: productID}
	if delta <= 0 {
		res.Message = msgInvalidQuantity
		return res, ErrInvalidQuantity
	}

	p, err := s.lookup(ctx, productID, &res)
	if err != nil {
		return res, err
	}

	c, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return res, errors.Wrap(err, "load cart")
	}

	current := c[productID]
	res.Quantity = current
	if delta > p.StockQuantity-current {
		res.Message = fmt.Sprintf("Only %d items available in stock. Cannot add more.", p.StockQuantity)
		return res, &InsufficientStockError{
			ProductID: productID,
			Available: p.StockQuantity,
			InCart:    current,
		}
	}

	c[productID] = current + delta
	if err := s.store.Save(ctx, sessionKey, c); err != nil {
		return res, errors.Wrap(err, "save cart")
	}

	res.Success = true
	res.Quantity = current + delta
	res.Message = msgAdded
	return res, nil
}

// Increase adds a single unit of productID.
func (s *Service) Increase(ctx context.Context, sessionKey, productID string) (Result, error) {
	return s.Add(ctx, sessionKey, productID, 1)
}

// Decrease removes a single unit of productID, dropping the entry once it
// reaches zero. Decreasing an absent entry returns ErrNotInCart.
func (s *Service) Decrease(ctx context.Context, sessionKey, productID string) (Result, error) {
	res := Result{ProductID: productID}

	if _, err := s.lookup(ctx, productID, &res); err != nil {
		return res, err
	}

	c, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return res, errors.Wrap(err, "load cart")
	}

	current, ok := c[productID]
	if !ok {
		res.Message = msgNotInCart
		return res, ErrNotInCart
	}

	next := current - 1
	if next <= 0 {
		delete(c, productID)
		next = 0
	} else {
		c[productID] = next
	}
	if err := s.store.Save(ctx, sessionKey, c); err != nil {
		return res, errors.Wrap(err, "save cart")
	}

	res.Success = true
	res.Quantity = next
	res.Message = msgUpdated
	return res, nil
}

// Remove deletes productID from the cart. It is idempotent and works for
// products that no longer exist in the catalog.
func (s *Service) Remove(ctx context.Context, sessionKey, productID string) (Result, error) {
	res := Result{ProductID: productID}

	switch p, err := s.catalog.GetByID(ctx, productID); {
	case err == nil:
		res.StockQuantity = p.StockQuantity
	case !errors.Is(err, product.ErrNotFound):
		return res, errors.Wrap(err, "get product")
	}

	c, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return res, errors.Wrap(err, "load cart")
	}
	if _, ok := c[productID]; ok {
		delete(c, productID)
		if err := s.store.Save(ctx, sessionKey, c); err != nil {
			return res, errors.Wrap(err, "save cart")
		}
	}

	res.Success = true
	res.Message = msgRemoved
	return res, nil
}

// Contents returns a snapshot of the stored cart.
func (s *Service) Contents(ctx context.Context, sessionKey string) (Cart, error) {
	c, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return c.Clone(), nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionKey string) error {
	if err := s.store.Save(ctx, sessionKey, Cart{}); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// View revalidates the cart against live stock. Entries whose product no
// longer exists are dropped from the stored cart and reported as warnings.
func (s *Service) View(ctx context.Context, sessionKey string) (*View, error) {
	c, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	ids := c.IDs()
	var found map[string]product.Product
	if len(ids) > 0 {
		products, err := s.catalog.GetByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "get products")
		}
		found = product.Index(products)
	}

	v := &View{
		entries:  c.Clone(),
		products: found,
	}

	var dropped bool
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			delete(c, id)
			delete(v.entries, id)
			dropped = true
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("Product with ID %s no longer exists and was removed from cart.", id))
			continue
		}
		if requested := c[id]; requested > p.StockQuantity {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("%s: Only %d available, but %d in cart. Please adjust quantity.",
					p.Name, p.StockQuantity, requested))
		}
	}

	if dropped {
		if err := s.store.Save(ctx, sessionKey, c); err != nil {
			return nil, errors.Wrap(err, "save cart")
		}
		zctx.From(ctx).Info("Dropped missing products from cart",
			zap.Int("remaining", len(c)),
		)
	}

	return v, nil
}

func (s *Service) lookup(ctx context.Context, productID string, res *Result) (*product.Product, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			res.Message = msgNotFound
			return nil, err
		}
		return nil, errors.Wrap(err, "get product")
	}
	res.StockQuantity = p.StockQuantity
	return p, nil
}
