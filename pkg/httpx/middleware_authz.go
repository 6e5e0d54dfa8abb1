package httpx

import (
	"net/http"

	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

const (
	msgUnauthorized  = "Unauthorized"
	msgAdminRequired = "Admin access required"
)

// RequireAuth short-circuits with 401 when the request carries no resolved
// identity.
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				WriteError(w, http.StatusUnauthorized, msgUnauthorized, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireAuth plus a role check. The role is read from the
// identity the session resolved to, never from anything the client sent.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// 1. Identity first.
			id, ok := IdentityFromContext(ctx)
			if !ok {
				WriteError(w, http.StatusUnauthorized, msgUnauthorized, "")
				return
			}

			// 2. Then role.
			if !id.IsAdmin() {
				slogx.FromContext(ctx).Warn("admin route refused", "role", id.Role)
				WriteError(w, http.StatusForbidden, msgAdminRequired, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
