package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, category, price, stock_quantity`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	listProductIDsSQL = `SELECT id FROM products`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	// Rows are locked in id order so concurrent checkouts never deadlock.
	lockProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	upsertProductSQL = `INSERT INTO products (id, name, category, price, stock_quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			updated_at = now()`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Locker     = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository that uses the given
// pool or transaction.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListIDs returns every product ID in the catalog.
func (r *ProductRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing product ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// LockByIDs selects the products FOR UPDATE. It must run inside a
// transaction.
func (r *ProductRepository) LockByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	rows, err := r.db.Query(ctx, lockProductsByIDsSQL, sorted)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts a product or overwrites an existing one.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.db.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Category, p.Price, p.StockQuantity)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.StockQuantity)
	return p, err
}
