package httpx

import "context"

type ctxKey string

const (
	CtxKeyIdentity     ctxKey = "identity"
	CtxKeySessionToken ctxKey = "session_token"
)

// RoleAdmin is the role name RequireAdmin checks for.
const RoleAdmin = "admin"

// Identity is the authenticated caller resolved from the session cookie.
type Identity struct {
	UserID      string
	Username    string
	DisplayName string
	Role        string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, CtxKeyIdentity, id)
}

// IdentityFromContext returns the caller, if the session resolved to one.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(Identity)
	return id, ok && id.UserID != ""
}

// SessionTokenFromContext returns the raw session token presented by the
// client, even when it did not resolve to a user.
func SessionTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(CtxKeySessionToken).(string)
	return tok
}
