package memory

import (
	"context"
	"sync"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps session carts in process memory. Carts do not expire.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]cart.Cart
}

// NewCartStore creates an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]cart.Cart)}
}

// Load returns a copy of the stored cart.
func (s *CartStore) Load(_ context.Context, sessionKey string) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sessionKey]
	if !ok {
		return cart.Cart{}, nil
	}
	return c.Clone(), nil
}

// Save replaces the stored cart. Entries with non-positive quantities are
// dropped.
func (s *CartStore) Save(_ context.Context, sessionKey string, c cart.Cart) error {
	stored := make(cart.Cart, len(c))
	for id, q := range c {
		if q > 0 {
			stored[id] = q
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(stored) == 0 {
		delete(s.carts, sessionKey)
		return nil
	}
	s.carts[sessionKey] = stored
	return nil
}
