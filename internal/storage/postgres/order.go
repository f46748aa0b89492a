package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id::text, user_id, status, created_at, updated_at`
	itemColumns  = `id::text, order_id::text, product_id, product_name, quantity, price`

	insertOrderSQL = `INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id`

	listItemsByOrdersSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = ANY($1::uuid[]) ORDER BY product_id, id`

	getItemForUpdateSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = $1 AND id = $2 FOR UPDATE`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	deleteOrderItemSQL = `DELETE FROM order_items WHERE order_id = $1 AND id = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository that uses the given pool or
// transaction.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order row and all of its items in one batch.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	b := &pgx.Batch{}
	b.Queue(insertOrderSQL, o.ID, o.UserID, string(o.Status), o.CreatedAt, o.UpdatedAt)
	for _, it := range o.Items {
		b.Queue(insertOrderItemSQL, it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.Price)
	}

	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderSQL, id)
}

// GetForUpdate returns an order with its items and locks the order row.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) get(ctx context.Context, query, id string) (*order.Order, error) {
	if !isUUID(id) {
		return nil, order.ErrOrderNotFound
	}

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders with items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}

	rows, err := r.db.Query(ctx, listItemsByOrdersSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	for _, it := range items {
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// UpdateStatus sets an order's status and update time.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) error {
	if !isUUID(id) {
		return order.ErrOrderNotFound
	}
	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, id, string(status), at)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// GetItemForUpdate returns an item of the given order and locks its row.
func (r *OrderRepository) GetItemForUpdate(ctx context.Context, orderID, itemID string) (*order.Item, error) {
	if !isUUID(orderID) || !isUUID(itemID) {
		return nil, order.ErrItemNotFound
	}

	rows, err := r.db.Query(ctx, getItemForUpdateSQL, orderID, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}
	return &it, nil
}

// DeleteItem removes an item from its order.
func (r *OrderRepository) DeleteItem(ctx context.Context, orderID, itemID string) error {
	if !isUUID(orderID) || !isUUID(itemID) {
		return order.ErrItemNotFound
	}
	tag, err := r.db.Exec(ctx, deleteOrderItemSQL, orderID, itemID)
	if err != nil {
		return fmt.Errorf("deleting order item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrItemNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt)
	o.Status = order.Status(status)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price)
	return it, err
}

// isUUID guards uuid columns from malformed identifiers, which PostgreSQL
// would reject with a syntax error instead of an empty result.
func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}
