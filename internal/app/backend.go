package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
)

// backend bundles the storage the services run on.
type backend struct {
	products product.Repository
	stock    stock.Ledger
	orders   order.Repository
	tx       order.Transactor
	keys     auth.Repository
	carts    cart.Store

	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured stores and registers a readiness check
// for every external dependency.
func openBackend(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (_ *backend, rerr error) {
	be := &backend{}
	defer func() {
		if rerr != nil {
			be.close()
		}
	}()

	switch cfg.Storage.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		be.closers = append(be.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

		be.products = postgres.NewProductRepository(pool)
		be.stock = postgres.NewStockLedger(pool)
		be.orders = postgres.NewOrderRepository(pool)
		be.tx = postgres.NewTransactor(pool)
		be.keys = postgres.NewAPIKeyRepository(pool)
	case DriverMemory:
		store, err := newMemoryStore(cfg)
		if err != nil {
			return nil, err
		}
		lg.Warn("Using in-memory storage, data is lost on restart")

		be.products = store
		be.stock = store
		be.orders = store
		be.tx = store
		be.keys = store
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.RedisURL == "" {
		be.carts = memory.NewCartStore()
		return be, nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}
	be.closers = append(be.closers, func() {
		if err := client.Close(); err != nil {
			lg.Warn("Close redis client", zap.Error(err))
		}
	})
	hs.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	be.carts = redis.NewCartStore(client, cfg.Session.TTL)
	return be, nil
}

// newMemoryStore builds a store holding the default catalog and the
// configured API keys.
func newMemoryStore(cfg *Config) (*memory.Store, error) {
	products, err := catalog.Parse(db.Products)
	if err != nil {
		return nil, errors.Wrap(err, "load default catalog")
	}
	store := memory.New()
	for _, p := range products {
		store.PutProduct(p)
	}

	pepper := []byte(cfg.APIKeyPepper)
	if k := cfg.Storage.CustomerKey; k != "" {
		store.PutAPIKey(auth.APIKeyInfo{
			ID:      "customer",
			KeyHash: auth.HashKey(pepper, k),
			Name:    "Local customer",
			UserID:  "customer",
			Scopes:  []string{auth.ScopeCustomer},
		})
	}
	if k := cfg.Storage.StaffKey; k != "" {
		store.PutAPIKey(auth.APIKeyInfo{
			ID:      "staff",
			KeyHash: auth.HashKey(pepper, k),
			Name:    "Local staff",
			UserID:  "staff",
			Scopes:  []string{auth.ScopeCustomer, auth.ScopeStaff},
		})
	}
	return store, nil
}
