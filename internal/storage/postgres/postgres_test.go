//go:build integration

package postgres_test

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

var productSeq atomic.Int64

// seedProduct inserts a product with a unique ID so tests can share the
// database without interfering.
func seedProduct(t *testing.T, price string, stock int) product.Product {
	t.Helper()
	p := product.Product{
		ID:            "it-" + strconv.FormatInt(productSeq.Add(1), 10),
		Name:          "Integration Widget",
		Category:      "Test",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	require.NoError(t, postgres.NewProductRepository(pool).Upsert(context.Background(), p))
	return p
}

func stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := postgres.NewProductRepository(pool).GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

type fixture struct {
	carts  *cart.Service
	orders *order.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	products := postgres.NewProductRepository(pool)
	carts := cart.NewService(memory.NewCartStore(), products)
	orders, err := order.NewService(postgres.NewTransactor(pool), postgres.NewOrderRepository(pool), carts)
	require.NoError(t, err)
	return fixture{carts: carts, orders: orders}
}

func TestProductRepository_GetByIDs(t *testing.T) {
	ctx := context.Background()
	a := seedProduct(t, "6.50", 3)
	b := seedProduct(t, "1.25", 7)

	repo := postgres.NewProductRepository(pool)
	got, err := repo.GetByIDs(ctx, []string{b.ID, a.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, a.Price.Equal(product.Index(got)[a.ID].Price))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestStockLedger_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	p := seedProduct(t, "2.00", 3)
	ledger := postgres.NewStockLedger(pool)

	remaining, err := ledger.Deduct(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	remaining, err = ledger.Restore(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)

	require.NoError(t, ledger.Set(ctx, p.ID, 11))
	assert.Equal(t, 11, stockOf(t, p.ID))

	_, err = ledger.Deduct(ctx, "missing", 1)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestCheckout_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := seedProduct(t, "10.00", 5)
	b := seedProduct(t, "4.00", 1)

	_, err := f.carts.Add(ctx, "s1", a.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "s1", b.ID, 1)
	require.NoError(t, err)

	// Another buyer takes the last unit of b.
	require.NoError(t, postgres.NewStockLedger(pool).Set(ctx, b.ID, 0))

	_, err = f.orders.Checkout(ctx, order.CheckoutRequest{SessionKey: "s1", UserID: "u1"})
	var ce *order.CheckoutError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, order.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, a.ID))

	orders, err := f.orders.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckout_CancelRestores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := seedProduct(t, "3.10", 4)

	_, err := f.carts.Add(ctx, "s2", p.ID, 3)
	require.NoError(t, err)

	o, err := f.orders.Checkout(ctx, order.CheckoutRequest{SessionKey: "s2", UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 1, stockOf(t, p.ID))
	assert.True(t, decimal.RequireFromString("9.30").Equal(o.Total()))

	got, err := f.orders.Get(ctx, auth.Identity{UserID: "u2"}, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Equal(t, p.Name, got.Items[0].ProductName)

	_, err = f.orders.SetStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 4, stockOf(t, p.ID))

	_, err = f.orders.SetStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 4, stockOf(t, p.ID))
}

func TestDeleteItem_RestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := seedProduct(t, "1.00", 2)

	_, err := f.carts.Add(ctx, "s3", p.ID, 2)
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, order.CheckoutRequest{SessionKey: "s3", UserID: "u3"})
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, p.ID))

	err = f.orders.DeleteItem(ctx, o.ID, "not-a-uuid")
	assert.ErrorIs(t, err, order.ErrItemNotFound)

	require.NoError(t, f.orders.DeleteItem(ctx, o.ID, o.Items[0].ID))
	assert.Equal(t, 2, stockOf(t, p.ID))

	got, err := f.orders.Get(ctx, auth.Identity{UserID: "u3"}, o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := seedProduct(t, "99.00", 1)

	const buyers = 8
	for i := range buyers {
		_, err := f.carts.Add(ctx, sessionFor(i), p.ID, 1)
		require.NoError(t, err)
	}

	var won atomic.Int32
	var g errgroup.Group
	for i := range buyers {
		g.Go(func() error {
			_, err := f.orders.Checkout(ctx, order.CheckoutRequest{SessionKey: sessionFor(i), UserID: "race"})
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, order.ErrInsufficientStock):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, 0, stockOf(t, p.ID))
}

func TestAPIKeyRepository_FindByHash(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAPIKeyRepository(pool)
	pepper := []byte("pepper")

	require.NoError(t, repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "it-staff",
		KeyHash: auth.HashKey(pepper, "staff-secret"),
		Name:    "Staff",
		UserID:  "staff-1",
		Scopes:  []string{auth.ScopeCustomer, auth.ScopeStaff},
	}))

	id, err := auth.NewAuthenticator(repo, pepper).Authenticate(ctx, "staff-secret")
	require.NoError(t, err)
	assert.True(t, id.IsStaff())
	assert.Equal(t, "staff-1", id.UserID)

	_, err = repo.FindByHash(ctx, auth.HashKey(pepper, "wrong"))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func sessionFor(i int) string {
	return "race-" + strconv.Itoa(i)
}
