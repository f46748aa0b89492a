// Package memory provides in-process implementations of the storefront
// repositories. Transactions are serialised behind a single mutex and run
// against a copy of the state that replaces the original only on success,
// giving the same all-or-nothing semantics as the PostgreSQL store.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

var (
	_ product.Repository = (*Store)(nil)
	_ stock.Ledger       = (*Store)(nil)
	_ order.Repository   = (*Store)(nil)
	_ order.Transactor   = (*Store)(nil)
	_ auth.Repository    = (*Store)(nil)
)

type state struct {
	products map[string]product.Product
	orders   map[string]order.Order
	keys     map[string]auth.APIKeyInfo
}

func (s *state) clone() *state {
	orders := make(map[string]order.Order, len(s.orders))
	for id, o := range s.orders {
		o.Items = slices.Clone(o.Items)
		orders[id] = o
	}
	return &state{
		products: maps.Clone(s.products),
		orders:   orders,
		keys:     s.keys,
	}
}

// Store is an in-memory catalog, stock ledger and order store.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty Store.
func New() *Store {
	return &Store{st: &state{
		products: make(map[string]product.Product),
		orders:   make(map[string]order.Order),
		keys:     make(map[string]auth.APIKeyInfo),
	}}
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// DeleteProduct removes a product from the catalog.
func (s *Store) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.products, id)
}

// PutAPIKey registers an API key.
func (s *Store) PutAPIKey(k auth.APIKeyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.keys[k.KeyHash] = k
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r order.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	v := view{st: work}
	if err := fn(ctx, order.Repos{Products: v, Stock: v, Orders: v}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) locked() (view, func()) {
	s.mu.Lock()
	return view{st: s.st}, s.mu.Unlock
}

// List returns all products ordered by ID.
func (s *Store) List(_ context.Context) ([]product.Product, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.list(), nil
}

// GetByID returns a single product.
func (s *Store) GetByID(_ context.Context, id string) (*product.Product, error) {
	v, unlock := s.locked()
	defer unlock()
	p, ok := v.st.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products matching ids. Unknown IDs are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.LockByIDs(ctx, ids)
}

// Deduct implements stock.Ledger outside of a transaction.
func (s *Store) Deduct(ctx context.Context, productID string, quantity int) (int, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.Deduct(ctx, productID, quantity)
}

// Restore implements stock.Ledger outside of a transaction.
func (s *Store) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.Restore(ctx, productID, quantity)
}

// Set implements stock.Ledger outside of a transaction.
func (s *Store) Set(ctx context.Context, productID string, quantity int) error {
	v, unlock := s.locked()
	defer unlock()
	return v.Set(ctx, productID, quantity)
}

// Create stores a new order.
func (s *Store) Create(ctx context.Context, o *order.Order) error {
	v, unlock := s.locked()
	defer unlock()
	return v.Create(ctx, o)
}

// Get returns an order with its items.
func (s *Store) Get(ctx context.Context, id string) (*order.Order, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.Get(ctx, id)
}

// ListByUser returns the user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.ListByUser(ctx, userID)
}

// GetForUpdate is Get; the store mutex already serialises writers.
func (s *Store) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return s.Get(ctx, id)
}

// UpdateStatus sets an order's status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	v, unlock := s.locked()
	defer unlock()
	return v.UpdateStatus(ctx, id, status, at)
}

// GetItemForUpdate returns an item scoped to its order.
func (s *Store) GetItemForUpdate(ctx context.Context, orderID, itemID string) (*order.Item, error) {
	v, unlock := s.locked()
	defer unlock()
	return v.GetItemForUpdate(ctx, orderID, itemID)
}

// DeleteItem removes an item from its order.
func (s *Store) DeleteItem(ctx context.Context, orderID, itemID string) error {
	v, unlock := s.locked()
	defer unlock()
	return v.DeleteItem(ctx, orderID, itemID)
}

// FindByHash looks up an active API key.
func (s *Store) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.st.keys[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return &k, nil
}

// view operates on a state without locking. The caller holds Store.mu.
type view struct {
	st *state
}

func (v view) list() []product.Product {
	out := slices.Collect(maps.Values(v.st.products))
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (v view) LockByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]product.Product, 0, len(sorted))
	for _, id := range sorted {
		if p, ok := v.st.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (v view) adjust(productID string, quantity int, fn func(current int) int) (int, error) {
	if err := stock.Check(quantity); err != nil {
		return 0, err
	}
	p, ok := v.st.products[productID]
	if !ok {
		return 0, product.ErrNotFound
	}
	p.StockQuantity = fn(p.StockQuantity)
	v.st.products[productID] = p
	return p.StockQuantity, nil
}

func (v view) Deduct(_ context.Context, productID string, quantity int) (int, error) {
	return v.adjust(productID, quantity, func(current int) int {
		return stock.Clamp(current, quantity)
	})
}

func (v view) Restore(_ context.Context, productID string, quantity int) (int, error) {
	return v.adjust(productID, quantity, func(current int) int {
		return current + quantity
	})
}

func (v view) Set(_ context.Context, productID string, quantity int) error {
	_, err := v.adjust(productID, quantity, func(int) int { return quantity })
	return err
}

func (v view) Create(_ context.Context, o *order.Order) error {
	stored := *o
	stored.Items = slices.Clone(o.Items)
	v.st.orders[o.ID] = stored
	return nil
}

func (v view) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := v.st.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

func (v view) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return v.Get(ctx, id)
}

func (v view) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range v.st.orders {
		if o.UserID == userID {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (v view) UpdateStatus(_ context.Context, id string, status order.Status, at time.Time) error {
	o, ok := v.st.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	v.st.orders[id] = o
	return nil
}

func (v view) GetItemForUpdate(_ context.Context, orderID, itemID string) (*order.Item, error) {
	o, ok := v.st.orders[orderID]
	if !ok {
		return nil, order.ErrItemNotFound
	}
	for _, it := range o.Items {
		if it.ID == itemID {
			return &it, nil
		}
	}
	return nil, order.ErrItemNotFound
}

func (v view) DeleteItem(_ context.Context, orderID, itemID string) error {
	o, ok := v.st.orders[orderID]
	if !ok {
		return order.ErrItemNotFound
	}
	n := len(o.Items)
	o.Items = slices.DeleteFunc(slices.Clone(o.Items), func(it order.Item) bool { return it.ID == itemID })
	if len(o.Items) == n {
		return order.ErrItemNotFound
	}
	v.st.orders[orderID] = o
	return nil
}
