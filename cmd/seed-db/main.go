package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type seedKey struct {
	id     string
	name   string
	key    string
	scopes []string
}

func main() {
	var (
		databaseURL  string
		productsFile string
		customerKey  string
		staffKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (default: built-in catalog)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or STOREFRONT_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&staffKey, "staff-key", "", "staff API key to seed (or STOREFRONT_SEED_STAFF_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.Parse()

	databaseURL = orEnv(databaseURL, "DATABASE_URL")
	customerKey = orEnv(customerKey, "STOREFRONT_SEED_CUSTOMER_KEY")
	staffKey = orEnv(staffKey, "STOREFRONT_SEED_STAFF_KEY")
	apiKeyPepper = orEnv(apiKeyPepper, "STOREFRONT_API_KEY_PEPPER")

	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	var keys []seedKey
	if customerKey != "" {
		keys = append(keys, seedKey{id: "customer", name: "Default customer", key: customerKey, scopes: []string{auth.ScopeCustomer}})
	}
	if staffKey != "" {
		keys = append(keys, seedKey{id: "staff", name: "Default staff", key: staffKey, scopes: []string{auth.ScopeCustomer, auth.ScopeStaff}})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKeyPepper, keys); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func orEnv(v, env string) string {
	if v != "" {
		return v
	}
	return os.Getenv(env)
}

func run(ctx context.Context, databaseURL, productsFile, pepper string, keys []seedKey) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAPIKeys(ctx, postgres.NewAPIKeyRepository(pool), pepper, keys); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	data := db.Products
	if productsFile != "" {
		slog.Info("reading products file", slog.String("path", productsFile))

		var err error
		if data, err = os.ReadFile(productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	products, err := catalog.Parse(data)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("stock", p.StockQuantity),
		)
	}

	return nil
}

func seedAPIKeys(ctx context.Context, repo *postgres.APIKeyRepository, pepper string, keys []seedKey) error {
	if len(keys) == 0 {
		slog.Warn("no API keys given, skipping")
		return nil
	}

	for _, k := range keys {
		if err := repo.Upsert(ctx, auth.APIKeyInfo{
			ID:      k.id,
			KeyHash: auth.HashKey([]byte(pepper), k.key),
			Name:    k.name,
			UserID:  k.id,
			Scopes:  k.scopes,
		}); err != nil {
			return errors.Wrapf(err, "upsert API key %s", k.id)
		}

		slog.Info("upserted API key", slog.String("id", k.id), slog.Any("scopes", k.scopes))
	}

	return nil
}
