package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Login signs in and keeps the session cookie.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := call[User](ctx, c, http.MethodPost, "/api/auth/login",
		LoginRequest{Username: username, Password: password}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the current session. It succeeds when signed out already.
func (c *SDKClient) Logout(ctx context.Context) error {
	return c.callNoContent(ctx, http.MethodPost, "/api/auth/logout", nil)
}

// Register redeems an invitation and signs the new user in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	u, err := call[User](ctx, c, http.MethodPost, "/api/auth/register", req, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ValidateInvite reports whether token can still be redeemed. An invalid
// token is not an error; Valid is false and Error names the reason.
func (c *SDKClient) ValidateInvite(ctx context.Context, token string) (*ValidateInviteResponse, error) {
	path := "/api/auth/validate-invite?" + url.Values{"token": {token}}.Encode()
	out, err := call[ValidateInviteResponse](ctx, c, http.MethodGet, path, nil, http.StatusOK, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser returns the signed-in user, or nil when there is none.
func (c *SDKClient) CurrentUser(ctx context.Context) (*User, error) {
	return call[*User](ctx, c, http.MethodGet, "/api/user", nil, http.StatusOK)
}
