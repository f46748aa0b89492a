package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher. Events are dropped by default.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider used for workflow spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements checkout and the order lifecycle.
type Service struct {
	tx     Transactor
	orders Repository
	carts  CartSource
	events Publisher
	now    func() time.Time

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	rejected       metric.Int64Counter
	restored       metric.Int64Counter
}

// NewService creates an order Service. orders is used for reads outside of
// a transaction.
func NewService(tx Transactor, orders Repository, carts CartSource, opts ...Option) (*Service, error) {
	s := &Service{
		tx:             tx,
		orders:         orders,
		carts:          carts,
		events:         nopPublisher{},
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders created by checkout"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	if s.rejected, err = meter.Int64Counter("storefront.checkout.rejected",
		metric.WithDescription("Checkouts rejected by cart validation"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout.rejected counter")
	}
	if s.restored, err = meter.Int64Counter("storefront.stock.restored",
		metric.WithDescription("Units returned to stock by cancellation or item deletion"),
	); err != nil {
		return nil, errors.Wrap(err, "stock.restored counter")
	}

	return s, nil
}

// CheckoutRequest holds the input for placing an order from a session cart.
type CheckoutRequest struct {
	SessionKey string
	UserID     string
}

// Checkout validates the whole cart against locked product rows and, if every
// line passes, creates a pending order with price snapshots and deducts stock
// in the same transaction. Validation failures are aggregated into a
// *CheckoutError and leave no trace. The cart is cleared after commit.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout")
	defer func() { endSpan(span, rerr) }()

	c, err := s.carts.Contents(ctx, req.SessionKey)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, r Repos) error {
		ids := c.IDs()
		locked, err := r.Products.LockByIDs(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "lock products")
		}
		byID := product.Index(locked)

		var problems []Problem
		items := make([]Item, 0, len(ids))
		for _, id := range ids {
			qty := c[id]
			p, ok := byID[id]
			switch {
			case !ok:
				problems = append(problems, Problem{ProductID: id, Kind: ErrProductNotFound, Requested: qty})
			case qty <= 0:
				problems = append(problems, Problem{
					ProductID: id, ProductName: p.Name, Kind: ErrInvalidQuantity,
					Requested: qty, Available: p.StockQuantity,
				})
			case qty > p.StockQuantity:
				problems = append(problems, Problem{
					ProductID: id, ProductName: p.Name, Kind: ErrInsufficientStock,
					Requested: qty, Available: p.StockQuantity,
				})
			default:
				items = append(items, Item{
					ID:          uuid.New().String(),
					OrderID:     o.ID,
					ProductID:   id,
					ProductName: p.Name,
					Quantity:    qty,
					Price:       p.Price,
				})
			}
		}
		if len(problems) > 0 {
			return &CheckoutError{Problems: problems}
		}

		o.Items = items
		if err := r.Orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		for _, it := range items {
			if _, err := r.Stock.Deduct(ctx, it.ProductID, it.Quantity); err != nil {
				return errors.Wrapf(err, "deduct stock for %s", it.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		var ce *CheckoutError
		if errors.As(err, &ce) {
			s.rejected.Add(ctx, 1)
			return nil, ce
		}
		return nil, errors.Wrap(err, "checkout")
	}

	s.placed.Add(ctx, 1)
	lg := zctx.From(ctx)
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total().StringFixed(2)),
	)

	if err := s.carts.Clear(ctx, req.SessionKey); err != nil {
		lg.Warn("Failed to clear cart after checkout", zap.String("order_id", o.ID), zap.Error(err))
	}

	s.publish(ctx, Event{
		Type:       EventPlaced,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.Total(),
		OccurredAt: now,
	})

	return o, nil
}

// Get returns an order visible to the viewer. Customers only see their own
// orders; foreign orders are reported as ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, viewer auth.Identity, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsStaff() && o.UserID != viewer.UserID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (s *Service) publish(ctx context.Context, e Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Failed to publish order event",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func restoredAttr(reason string) metric.AddOption {
	return metric.WithAttributes(attribute.String("reason", reason))
}
