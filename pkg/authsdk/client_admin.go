package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// The methods below need an admin session.

func userPath(id string) string { return "/api/admin/users/" + url.PathEscape(id) }

func (c *SDKClient) ListUsers(ctx context.Context) ([]User, error) {
	return call[[]User](ctx, c, http.MethodGet, "/api/admin/users", nil, http.StatusOK)
}

func (c *SDKClient) ChangeRole(ctx context.Context, userID, role string) (*User, error) {
	u, err := call[User](ctx, c, http.MethodPatch, userPath(userID), ChangeRoleRequest{Role: role}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *SDKClient) DeleteUser(ctx context.Context, userID string) error {
	return c.callNoContent(ctx, http.MethodDelete, userPath(userID), nil)
}

func (c *SDKClient) ResetPassword(ctx context.Context, userID, newPassword string) error {
	return c.callNoContent(ctx, http.MethodPost, userPath(userID)+"/reset-password",
		ResetPasswordRequest{NewPassword: newPassword})
}

func (c *SDKClient) ListInvitations(ctx context.Context) ([]Invitation, error) {
	return call[[]Invitation](ctx, c, http.MethodGet, "/api/admin/invitations", nil, http.StatusOK)
}

// CreateInvitation invites req.Email. The response holds the only copy of
// the invite link.
func (c *SDKClient) CreateInvitation(ctx context.Context, req CreateInvitationRequest) (*CreateInvitationResponse, error) {
	out, err := call[CreateInvitationResponse](ctx, c, http.MethodPost, "/api/admin/invitations", req, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) DeleteInvitation(ctx context.Context, id string) error {
	return c.callNoContent(ctx, http.MethodDelete, "/api/admin/invitations/"+url.PathEscape(id), nil)
}

func (c *SDKClient) EmailStatus(ctx context.Context) (*EmailStatusResponse, error) {
	out, err := call[EmailStatusResponse](ctx, c, http.MethodGet, "/api/admin/email-status", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
