package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/mail"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/pkg/authsdk"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

type AdminInvitationsHandler struct {
	Invitations *service.InvitationService
	Mailer      service.Mailer // optional
	AppURL      string
}

// HandleList godoc
//
//	@Summary		List invitations
//	@Tags			Admin
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{array}		authsdk.Invitation
//	@Failure		403	{object}	authsdk.ErrorResponse	"Admin access required"
//	@Router			/api/admin/invitations [get].
func (h *AdminInvitationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Invitations.List(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to list invitations", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInvitations(invs))
}

// HandleCreate godoc
//
//	@Summary		Invite someone
//	@Description	Creates a single-use invitation valid for 7 days and emails it when email is
//	@Description	configured. The response holds the only copy of the invite link.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		SessionCookie
//	@Param			body	body		authsdk.CreateInvitationRequest	true	"Invitee"
//	@Success		201		{object}	authsdk.CreateInvitationResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid email or role"
//	@Router			/api/admin/invitations [post].
func (h *AdminInvitationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := httpx.IdentityFromContext(ctx)

	var req authsdk.CreateInvitationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	role := domain.RoleUser
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			httpx.WriteValidationError(w, "Invalid role", map[string]string{"role": err.Error()})
			return
		}
		role = parsed
	}

	inviter := domain.User{
		ID:          actor.UserID,
		Username:    actor.Username,
		DisplayName: actor.DisplayName,
	}
	res, err := h.Invitations.Invite(ctx, req.Email, role, inviter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			httpx.WriteValidationError(w, "Invalid request", map[string]string{"email": err.Error()})
			return
		}
		slogx.FromContext(ctx).Error("failed to create invitation", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	msg := "Invitation created. Share the link with the invitee."
	if res.EmailSent {
		msg = fmt.Sprintf("Invitation email sent to %s", res.Invitation.Email)
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateInvitationResponse{
		Invitation: toInvitation(res.Invitation),
		InviteURL:  mail.InviteURL(h.AppURL, res.Token),
		EmailSent:  res.EmailSent,
		Message:    msg,
	})
}

// HandleDelete godoc
//
//	@Summary		Revoke an invitation
//	@Tags			Admin
//	@Security		SessionCookie
//	@Param			id	path	string	true	"Invitation ID"
//	@Success		204
//	@Failure		404	{object}	authsdk.ErrorResponse	"Invitation not found"
//	@Router			/api/admin/invitations/{id} [delete].
func (h *AdminInvitationsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r, "Invitation not found")
	if !ok {
		return
	}

	err := h.Invitations.Revoke(ctx, id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvitationNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Invitation not found", "")
	default:
		slogx.FromContext(ctx).Error("failed to revoke invitation", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

// HandleEmailStatus godoc
//
//	@Summary		Email delivery status
//	@Tags			Admin
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.EmailStatusResponse
//	@Router			/api/admin/email-status [get].
func (h *AdminInvitationsHandler) HandleEmailStatus(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.EmailStatusResponse{
		Configured: h.Mailer != nil && h.Mailer.IsConfigured(),
	})
}
