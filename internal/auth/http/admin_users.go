package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/pkg/authsdk"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

type AdminUsersHandler struct {
	Users *service.UserService
}

// HandleList godoc
//
//	@Summary		List users
//	@Tags			Admin
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{array}		authsdk.User
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"Admin access required"
//	@Router			/api/admin/users [get].
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list users", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUsers(users))
}

// HandleChangeRole godoc
//
//	@Summary		Change a user's role
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			id		path		string						true	"User ID"
//	@Param			body	body		authsdk.ChangeRoleRequest	true	"New role"
//	@Success		200		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid role"
//	@Failure		404		{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/api/admin/users/{id} [patch].
func (h *AdminUsersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ChangeRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	user, err := h.Users.ChangeRole(ctx, id, req.Role)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidRole):
		httpx.WriteValidationError(w, "Invalid role", map[string]string{"role": err.Error()})
		return
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found", "")
		return
	default:
		slogx.FromContext(ctx).Error("failed to change role", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}

// HandleDelete godoc
//
//	@Summary		Delete a user
//	@Description	Removes the account and ends its sessions. Admins cannot delete themselves.
//	@Tags			Admin
//	@Security		SessionCookie
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Cannot delete your own account"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/api/admin/users/{id} [delete].
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := httpx.IdentityFromContext(ctx)

	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	err := h.Users.Delete(ctx, actor.UserID, id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrCannotDeleteSelf):
		httpx.WriteError(w, http.StatusBadRequest, "Cannot delete your own account", "")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found", "")
	default:
		slogx.FromContext(ctx).Error("failed to delete user", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

// HandleResetPassword godoc
//
//	@Summary		Reset a user's password
//	@Description	Sets a new password chosen by the admin and ends the user's sessions.
//	@Tags			Admin
//	@Accept			json
//	@Security		SessionCookie
//	@Param			id		path	string							true	"User ID"
//	@Param			body	body	authsdk.ResetPasswordRequest	true	"New password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Password too short"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/api/admin/users/{id}/reset-password [post].
func (h *AdminUsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	id, ok := pathID(w, r, "User not found")
	if !ok {
		return
	}

	err := h.Users.ResetPassword(ctx, id, req.NewPassword)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrPasswordTooLong):
		httpx.WriteValidationError(w, "Invalid request", map[string]string{"newPassword": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found", "")
	default:
		slogx.FromContext(ctx).Error("failed to reset password", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
