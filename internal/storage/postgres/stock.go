package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// Each adjustment is a single atomic statement, so the clamp and the
// increment never race with another writer even without an explicit lock.
const (
	deductStockSQL = `UPDATE products
		SET stock_quantity = GREATEST(stock_quantity - $2, 0), updated_at = now()
		WHERE id = $1 RETURNING stock_quantity`

	restoreStockSQL = `UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 RETURNING stock_quantity`

	setStockSQL = `UPDATE products
		SET stock_quantity = $2, updated_at = now()
		WHERE id = $1 RETURNING stock_quantity`
)

var _ stock.Ledger = (*StockLedger)(nil)

// StockLedger implements stock.Ledger backed by PostgreSQL.
type StockLedger struct {
	db DBTX
}

// NewStockLedger returns a StockLedger that uses the given pool or
// transaction.
func NewStockLedger(db DBTX) *StockLedger {
	return &StockLedger{db: db}
}

// Deduct lowers stock, flooring at zero.
func (l *StockLedger) Deduct(ctx context.Context, productID string, quantity int) (int, error) {
	return l.adjust(ctx, deductStockSQL, "deducting", productID, quantity)
}

// Restore raises stock.
func (l *StockLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	return l.adjust(ctx, restoreStockSQL, "restoring", productID, quantity)
}

// Set overwrites stock.
func (l *StockLedger) Set(ctx context.Context, productID string, quantity int) error {
	_, err := l.adjust(ctx, setStockSQL, "setting", productID, quantity)
	return err
}

func (l *StockLedger) adjust(ctx context.Context, query, verb, productID string, quantity int) (int, error) {
	if err := stock.Check(quantity); err != nil {
		return 0, err
	}

	var remaining int
	if err := l.db.QueryRow(ctx, query, productID, quantity).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, fmt.Errorf("%s stock for %q: %w", verb, productID, err)
	}
	return remaining, nil
}
