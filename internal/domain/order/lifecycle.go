package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// SetStatus moves an order to the status named by raw. Any status may follow
// any other. Stock is restored only on the transition from a non-cancelled
// status into cancelled, so re-cancelling is a no-op for stock.
func (s *Service) SetStatus(ctx context.Context, orderID, raw string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.SetStatus")
	defer func() { endSpan(span, rerr) }()

	next, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	var (
		updated  *Order
		prev     Status
		restored int64
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		o, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		prev = o.Status

		if prev != StatusCancelled && next == StatusCancelled {
			if _, err := r.Products.LockByIDs(ctx, o.ProductIDs()); err != nil {
				return errors.Wrap(err, "lock products")
			}
			for _, it := range o.Items {
				if _, err := r.Stock.Restore(ctx, it.ProductID, it.Quantity); err != nil {
					return errors.Wrapf(err, "restore stock for %s", it.ProductID)
				}
				restored += int64(it.Quantity)
			}
		}

		now := s.now()
		if err := r.Orders.UpdateStatus(ctx, o.ID, next, now); err != nil {
			return errors.Wrap(err, "update status")
		}
		o.Status = next
		o.UpdatedAt = now
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if restored > 0 {
		s.restored.Add(ctx, restored, restoredAttr("cancel"))
	}
	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", updated.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Int64("restored_units", restored),
	)

	s.publish(ctx, Event{
		Type:           EventStatusChanged,
		OrderID:        updated.ID,
		UserID:         updated.UserID,
		Status:         next,
		PreviousStatus: prev,
		Total:          updated.Total(),
		OccurredAt:     updated.UpdatedAt,
	})

	return updated, nil
}

// DeleteItem removes a single item from an order and returns its quantity to
// stock, whatever the order's status. The item must belong to the order.
func (s *Service) DeleteItem(ctx context.Context, orderID, itemID string) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.DeleteItem")
	defer func() { endSpan(span, rerr) }()

	var item *Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		it, err := r.Orders.GetItemForUpdate(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if _, err := r.Products.LockByIDs(ctx, []string{it.ProductID}); err != nil {
			return errors.Wrap(err, "lock product")
		}
		if _, err := r.Stock.Restore(ctx, it.ProductID, it.Quantity); err != nil {
			return errors.Wrapf(err, "restore stock for %s", it.ProductID)
		}
		if err := r.Orders.DeleteItem(ctx, orderID, itemID); err != nil {
			return errors.Wrap(err, "delete item")
		}
		item = it
		return nil
	})
	if err != nil {
		return err
	}

	s.restored.Add(ctx, int64(item.Quantity), restoredAttr("item_delete"))
	zctx.From(ctx).Info("Order item deleted",
		zap.String("order_id", orderID),
		zap.String("item_id", itemID),
		zap.String("product_id", item.ProductID),
		zap.Int("restored_units", item.Quantity),
	)

	s.publish(ctx, Event{
		Type:       EventItemDeleted,
		OrderID:    orderID,
		ItemID:     itemID,
		OccurredAt: s.now(),
	})

	return nil
}
