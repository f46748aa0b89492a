package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		status = v
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	o, err := h.orders.SetStatus(r.Context(), r.PathValue("orderID"), status)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.FieldStart("message")
		e.Str(fmt.Sprintf("Order #%s status updated to %s", o.ID, o.Status))
		e.FieldStart("order")
		encodeOrder(e, o)
		e.ObjEnd()
	})
}

func (h *Handler) deleteOrderItem(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteItem(r.Context(), r.PathValue("orderID"), r.PathValue("itemID")); err != nil {
		writeOrderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setStock overwrites a product's stock with an absolute quantity.
func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	qty := -1
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "stock_quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		qty = v
		return err
	})
	if err != nil || qty < 0 {
		writeError(w, http.StatusBadRequest, "Invalid stock quantity")
		return
	}

	ctx := r.Context()
	p, err := h.products.GetByID(ctx, r.PathValue("productID"))
	if err == nil {
		err = h.stock.Set(ctx, p.ID, qty)
	}
	switch {
	case err == nil:
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
		return
	case errors.Is(err, stock.ErrNegativeQuantity):
		writeError(w, http.StatusBadRequest, "Invalid stock quantity")
		return
	default:
		zctx.From(ctx).Error("Set stock", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	zctx.From(ctx).Info("Stock set",
		zap.String("product_id", p.ID),
		zap.Int("from", p.StockQuantity),
		zap.Int("to", qty),
	)
	p.StockQuantity = qty
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.FieldStart("message")
		e.Str("Stock updated for " + p.Name)
		e.FieldStart("product")
		encodeProduct(e, *p)
		e.ObjEnd()
	})
}
