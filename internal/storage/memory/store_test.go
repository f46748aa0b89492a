package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

func seeded() *Store {
	s := New()
	s.PutProduct(product.Product{ID: "A", Name: "Apple", Price: decimal.NewFromInt(2), StockQuantity: 5})
	s.PutProduct(product.Product{ID: "B", Name: "Banana", Price: decimal.NewFromInt(3), StockQuantity: 1})
	return s
}

func TestLedger(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	left, err := s.Deduct(ctx, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	left, err = s.Deduct(ctx, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, left, "deduction is clamped")

	left, err = s.Restore(ctx, "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, left)

	require.NoError(t, s.Set(ctx, "A", 9))
	p, err := s.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 9, p.StockQuantity)

	_, err = s.Deduct(ctx, "A", -1)
	require.ErrorIs(t, err, stock.ErrNegativeQuantity)
	_, err = s.Restore(ctx, "A", -1)
	require.ErrorIs(t, err, stock.ErrNegativeQuantity)
	require.ErrorIs(t, s.Set(ctx, "A", -1), stock.ErrNegativeQuantity)

	_, err = s.Deduct(ctx, "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestWithinTx_RollsBack(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, r order.Repos) error {
		if _, err := r.Stock.Deduct(ctx, "A", 5); err != nil {
			return err
		}
		if err := r.Orders.Create(ctx, &order.Order{ID: "o1", UserID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
	_, err = s.Get(ctx, "o1")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestWithinTx_Commits(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, r order.Repos) error {
		locked, err := r.Products.LockByIDs(ctx, []string{"B", "A", "B", "missing"})
		require.NoError(t, err)
		require.Len(t, locked, 2)
		assert.Equal(t, "A", locked[0].ID)
		assert.Equal(t, "B", locked[1].ID)

		_, err = r.Stock.Deduct(ctx, "B", 1)
		return err
	})
	require.NoError(t, err)

	p, err := s.GetByID(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
}

func TestOrders(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &order.Order{ID: "o1", UserID: "u1", Status: order.StatusPending, CreatedAt: t0,
		Items: []order.Item{{ID: "i1", OrderID: "o1", ProductID: "A", Quantity: 1, Price: decimal.NewFromInt(2)}}}
	newer := &order.Order{ID: "o2", UserID: "u1", Status: order.StatusPending, CreatedAt: t0.Add(time.Hour)}
	other := &order.Order{ID: "o3", UserID: "u2", Status: order.StatusPending, CreatedAt: t0}
	for _, o := range []*order.Order{older, newer, other} {
		require.NoError(t, s.Create(ctx, o))
	}

	list, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)
	assert.Equal(t, "o1", list[1].ID)

	require.NoError(t, s.UpdateStatus(ctx, "o1", order.StatusCompleted, t0.Add(2*time.Hour)))
	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)

	_, err = s.GetItemForUpdate(ctx, "o2", "i1")
	require.ErrorIs(t, err, order.ErrItemNotFound, "item is scoped to its order")

	it, err := s.GetItemForUpdate(ctx, "o1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "A", it.ProductID)

	require.NoError(t, s.DeleteItem(ctx, "o1", "i1"))
	require.ErrorIs(t, s.DeleteItem(ctx, "o1", "i1"), order.ErrItemNotFound)

	got, err = s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCartStore(t *testing.T) {
	s := NewCartStore()
	ctx := context.Background()

	c, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Empty(t, c)

	require.NoError(t, s.Save(ctx, "s1", cart.Cart{"A": 2, "B": 0, "C": -1}))
	c, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, cart.Cart{"A": 2}, c)

	c["A"] = 7
	again, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, again["A"])

	require.NoError(t, s.Save(ctx, "s1", cart.Cart{}))
	c, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, c)
}
