// Package handler exposes the storefront over HTTP with JSON bodies.
package handler

import (
	"net/http"
	"time"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// Config holds non-dependency settings for the Handler.
type Config struct {
	// SessionCookie names the cookie carrying the cart session ID.
	SessionCookie string
	// SessionTTL bounds the cookie lifetime. Zero makes it a browser-session
	// cookie.
	SessionTTL time.Duration
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Handler serves the cart, checkout, order and panel endpoints.
type Handler struct {
	cfg      Config
	products product.Repository
	stock    stock.Ledger
	carts    *cart.Service
	orders   *order.Service
	authn    *auth.Authenticator
}

// New constructs a Handler.
func New(
	cfg Config,
	products product.Repository,
	ledger stock.Ledger,
	carts *cart.Service,
	orders *order.Service,
	authn *auth.Authenticator,
) *Handler {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "session_id"
	}
	return &Handler{
		cfg:      cfg,
		products: products,
		stock:    ledger,
		carts:    carts,
		orders:   orders,
		authn:    authn,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	session := h.withSession
	customer := h.authenticate
	staff := func(next http.HandlerFunc) http.HandlerFunc {
		return h.authenticate(requireStaff(next))
	}

	mux.HandleFunc("GET /api/products", h.listProducts)

	mux.HandleFunc("GET /api/cart", session(h.viewCart))
	mux.HandleFunc("POST /api/cart/{productID}/add", session(h.addToCart))
	mux.HandleFunc("POST /api/cart/{productID}/increase", session(h.increaseInCart))
	mux.HandleFunc("POST /api/cart/{productID}/decrease", session(h.decreaseInCart))
	mux.HandleFunc("DELETE /api/cart/{productID}", session(h.removeFromCart))

	mux.HandleFunc("POST /api/checkout", session(customer(h.checkout)))
	mux.HandleFunc("GET /api/orders", customer(h.listOrders))
	mux.HandleFunc("GET /api/orders/{orderID}", customer(h.getOrder))

	mux.HandleFunc("POST /api/panel/orders/{orderID}/status", staff(h.setOrderStatus))
	mux.HandleFunc("DELETE /api/panel/orders/{orderID}/items/{itemID}", staff(h.deleteOrderItem))
	mux.HandleFunc("POST /api/panel/products/{productID}/stock", staff(h.setStock))
}
