// Command stock-import applies gzipped stock feeds to the catalog. Each feed
// line is "product_id,quantity"; quantities are absolute. Feeds are parsed
// concurrently and applied in argument order in a single transaction, so a
// later feed wins over an earlier one and a failed import changes nothing.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const bloomFPR = 0.001

func main() {
	var (
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and match feeds without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("usage: stock-import [flags] feed.csv.gz...")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args(), dryRun); err != nil {
		slog.Error("stock import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("stock import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, dryRun bool) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	ids, err := postgres.NewProductRepository(pool).ListIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "list product ids")
	}
	known := knownFilter(ids)

	slog.Info("parsing feeds", slog.Int("files", len(files)), slog.Int("products", len(ids)))

	feeds, err := parseFeeds(ctx, files, known)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}
	updates := merge(feeds)

	slog.Info("feeds parsed", slog.Int("updates", len(updates)))

	if dryRun || len(updates) == 0 {
		return nil
	}

	n, err := apply(ctx, postgres.NewTransactor(pool), updates)
	if err != nil {
		return errors.Wrap(err, "apply stock updates")
	}

	slog.Info("stock updated", slog.Int("products", n), slog.Int("skipped", len(updates)-n))
	return nil
}

// knownFilter indexes catalog IDs so feed lines for unknown products are
// dropped while parsing. False positives are caught when applying.
func knownFilter(ids []string) *bloom.BloomFilter {
	f := bloom.NewWithEstimates(uint(max(len(ids), 1)), bloomFPR)
	for _, id := range ids {
		f.AddString(id)
	}
	return f
}

// apply sets every update inside one transaction and returns how many
// products were changed.
func apply(ctx context.Context, tx order.Transactor, updates []update) (int, error) {
	var applied int
	err := tx.WithinTx(ctx, func(ctx context.Context, r order.Repos) error {
		applied = 0
		for _, u := range updates {
			err := r.Stock.Set(ctx, u.productID, u.quantity)
			switch {
			case errors.Is(err, product.ErrNotFound):
				slog.Warn("unknown product", slog.String("product_id", u.productID))
				continue
			case err != nil:
				return errors.Wrapf(err, "set stock for %s", u.productID)
			}
			applied++
		}
		return nil
	})
	return applied, err
}
