package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

const maxBodySize = 1 << 16

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// decodeBody walks a JSON object body. An empty body is not an error, so
// optional payloads can be omitted.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("stock_quantity")
	e.Int(p.StockQuantity)
	e.ObjEnd()
}

func encodeResult(e *jx.Encoder, res cart.Result) {
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(res.Success)
	e.FieldStart("message")
	e.Str(res.Message)
	e.FieldStart("product_id")
	e.Str(res.ProductID)
	e.FieldStart("quantity")
	e.Int(res.Quantity)
	e.FieldStart("stock_quantity")
	e.Int(res.StockQuantity)
	e.ObjEnd()
}

func encodeView(e *jx.Encoder, v *cart.View) {
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for l := range v.Lines() {
		e.ObjStart()
		e.FieldStart("product")
		encodeProduct(e, l.Product)
		e.FieldStart("requested")
		e.Int(l.Requested)
		e.FieldStart("available")
		e.Int(l.Available)
		e.FieldStart("subtotal")
		encodeMoney(e, l.Subtotal)
		e.FieldStart("has_stock_issue")
		e.Bool(l.HasStockIssue)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("items")
	e.Int(v.Items())
	e.FieldStart("total")
	encodeMoney(e, v.Total())
	e.FieldStart("has_stock_issues")
	e.Bool(v.HasStockIssues())
	e.FieldStart("warnings")
	e.ArrStart()
	for _, msg := range v.Warnings {
		e.Str(msg)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total")
	encodeMoney(e, o.Total())
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("product_name")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.FieldStart("subtotal")
		encodeMoney(e, it.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// problemKind names a checkout problem in responses.
func problemKind(p order.Problem) string {
	switch p.Kind {
	case order.ErrProductNotFound:
		return "product_not_found"
	case order.ErrInvalidQuantity:
		return "invalid_quantity"
	case order.ErrInsufficientStock:
		return "insufficient_stock"
	default:
		return "unknown"
	}
}
