package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// authenticate resolves the api_key header to an identity and stores it in
// the request context. Unknown or missing keys get 401.
func (h *Handler) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		id, err := h.authn.Authenticate(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := zctx.With(auth.WithIdentity(r.Context(), id), zap.String("user_id", id.UserID))
		next(w, r.WithContext(ctx))
	}
}

// requireStaff rejects identities without the staff scope with 403. It must
// run after authenticate.
func requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || !id.IsStaff() {
			writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
			return
		}
		next(w, r)
	}
}
