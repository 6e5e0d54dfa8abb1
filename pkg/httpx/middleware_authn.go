package httpx

import (
	"context"
	"net/http"

	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

// IdentityFunc resolves a raw session token to the user it is bound to.
// ok is false for unknown, expired or dangling sessions.
type IdentityFunc func(ctx context.Context, sessionToken string) (id Identity, ok bool)

// SessionMiddleware reads the session cookie and, when it resolves, puts the
// caller's Identity on the request context. It never rejects a request;
// RequireAuth and RequireAdmin do that.
func SessionMiddleware(cookies CookieConfig, resolve IdentityFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookies.Read(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxKeySessionToken, token)
			if id, ok := resolve(ctx, token); ok {
				ctx = WithIdentity(ctx, id)
				ctx = slogx.WithUserID(ctx, id.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
