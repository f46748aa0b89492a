package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type sessionKey struct{}

// withSession resolves the cart session from its cookie, issuing a fresh
// random ID when the cookie is missing or malformed.
func (h *Handler) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(h.cfg.SessionCookie); err == nil && uuid.Validate(c.Value) == nil {
			id = c.Value
		} else {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     h.cfg.SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(h.cfg.SessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   h.cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	}
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
