package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
)

// checkout places an order from the caller's session cart.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		SessionKey: sessionFrom(r.Context()),
		UserID:     id.UserID,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Str(o.ID)
		e.FieldStart("order")
		encodeOrder(e, o)
		e.ObjEnd()
	})
}

// writeCheckoutError answers 422 with every problem when validation fails,
// so the client can fix all lines at once.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *order.CheckoutError
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty")
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusUnprocessableEntity)
			e.FieldStart("message")
			e.Str("checkout rejected")
			e.FieldStart("errors")
			e.ArrStart()
			for _, p := range ce.Problems {
				e.ObjStart()
				e.FieldStart("product_id")
				e.Str(p.ProductID)
				e.FieldStart("kind")
				e.Str(problemKind(p))
				e.FieldStart("message")
				e.Str(p.Message())
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
	default:
		zctx.From(r.Context()).Error("Checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		zctx.From(r.Context()).Error("List orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	o, err := h.orders.Get(r.Context(), id, r.PathValue("orderID"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, order.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Order item not found")
	default:
		zctx.From(r.Context()).Error("Order operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
