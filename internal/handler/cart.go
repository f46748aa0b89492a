package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

type cartMutation func(ctx context.Context, session, productID string) (cart.Result, error)

func (h *Handler) mutateCart(op cartMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), sessionFrom(r.Context()), r.PathValue("productID"))
		writeCartResult(w, r, res, err)
	}
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	qty := 1
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		qty = v
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.carts.Add(r.Context(), sessionFrom(r.Context()), r.PathValue("productID"), qty)
	writeCartResult(w, r, res, err)
}

func (h *Handler) increaseInCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(h.carts.Increase)(w, r)
}

func (h *Handler) decreaseInCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(h.carts.Decrease)(w, r)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(h.carts.Remove)(w, r)
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.View(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		zctx.From(r.Context()).Error("View cart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeView(e, v) })
}

// writeCartResult maps a cart outcome to a response. Business rejections are
// 200 with success=false so clients can render the message inline.
func writeCartResult(w http.ResponseWriter, r *http.Request, res cart.Result, err error) {
	code := http.StatusOK
	var stockErr *cart.InsufficientStockError
	switch {
	case err == nil, errors.As(err, &stockErr), errors.Is(err, cart.ErrNotInCart):
	case errors.Is(err, product.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity):
		code = http.StatusBadRequest
	default:
		zctx.From(r.Context()).Error("Cart operation failed",
			zap.String("product_id", res.ProductID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, code, func(e *jx.Encoder) { encodeResult(e, res) })
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}
