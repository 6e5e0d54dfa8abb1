package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/pkg/authsdk"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

// AuthHandler serves login, logout, invitation registration and the
// current-user probe.
type AuthHandler struct {
	Sessions    *service.SessionService
	Users       *service.UserService
	Invitations *service.InvitationService
	Cookies     httpx.CookieConfig
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies username and password and starts a cookie session. Unknown usernames
//	@Description	and wrong passwords get the same answer.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"Missing fields"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	details := map[string]string{}
	if req.Username == "" {
		details["username"] = "is required"
	}
	if req.Password == "" {
		details["password"] = "is required"
	}
	if len(details) > 0 {
		httpx.WriteValidationError(w, "Invalid request", details)
		return
	}

	user, err := h.Sessions.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		log.Error("login failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	// A fresh login replaces whatever session the browser carried.
	if old := httpx.SessionTokenFromContext(ctx); old != "" {
		if err := h.Sessions.Logout(ctx, old); err != nil {
			log.Warn("failed to end previous session", slog.Any("error", err))
		}
	}

	token, expiresAt, err := h.Sessions.Login(ctx, user)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	h.Cookies.Set(w, token, expiresAt)
	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Ends the current session and clears the cookie. Safe to call when signed out.
//	@Tags			Auth
//	@Success		204
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := httpx.SessionTokenFromContext(ctx); token != "" {
		if err := h.Sessions.Logout(ctx, token); err != nil {
			slogx.FromContext(ctx).Error("logout failed", slog.Any("error", err))
		}
	}

	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegister godoc
//
//	@Summary		Register with an invitation
//	@Description	Redeems an invitation token for a new account and signs the new user in.
//	@Description	Invitation failures answer with the code NotFound, AlreadyAccepted or Expired.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"Invitation token and account details"
//	@Success		201		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation or invitation error"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	details := map[string]string{}
	if req.Token == "" {
		details["token"] = "is required"
	}
	if req.Username == "" {
		details["username"] = "is required"
	}
	if req.Password == "" {
		details["password"] = "is required"
	}
	if len(details) > 0 {
		httpx.WriteValidationError(w, "Invalid request", details)
		return
	}

	user, err := h.Invitations.Register(ctx, req.Token, req.Username, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		switch {
		case service.IsInvitationError(err):
			httpx.WriteError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, service.ErrUsernameTaken):
			httpx.WriteError(w, http.StatusBadRequest, "Username already taken", "")
		case errors.Is(err, service.ErrInvalidUsername):
			httpx.WriteValidationError(w, "Invalid request", map[string]string{"username": err.Error()})
		case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrPasswordTooLong):
			httpx.WriteValidationError(w, "Invalid request", map[string]string{"password": err.Error()})
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		}
		return
	}

	token, expiresAt, err := h.Sessions.Login(ctx, user)
	if err != nil {
		// The account exists; the user can still log in by hand.
		log.Error("failed to start session after registration", slog.Any("error", err))
		httpx.WriteJSON(w, http.StatusCreated, toUser(user))
		return
	}

	h.Cookies.Set(w, token, expiresAt)
	httpx.WriteJSON(w, http.StatusCreated, toUser(user))
}

// HandleValidateInvite godoc
//
//	@Summary		Check an invitation token
//	@Description	Lets the registration page show the invited email before the form is filled.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	query		string	true	"Invitation token"
//	@Success		200		{object}	authsdk.ValidateInviteResponse
//	@Failure		400		{object}	authsdk.ValidateInviteResponse	"valid=false with the failure code"
//	@Router			/api/auth/validate-invite [get].
func (h *AuthHandler) HandleValidateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := h.Invitations.Validate(ctx, r.URL.Query().Get("token"))
	if err != nil {
		if service.IsInvitationError(err) {
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidateInviteResponse{
				Valid: false,
				Error: err.Error(),
			})
			return
		}
		slogx.FromContext(ctx).Error("failed to validate invitation", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateInviteResponse{
		Valid: true,
		Email: inv.Email,
	})
}

// HandleCurrentUser godoc
//
//	@Summary		Current user
//	@Description	Returns the signed-in user, or null when there is no live session.
//	@Tags			Auth
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.User
//	@Router			/api/user [get].
func (h *AuthHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httpx.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, nil)
		return
	}

	user, err := h.Users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteJSON(w, http.StatusOK, nil)
			return
		}
		slogx.FromContext(ctx).Error("failed to load current user", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}
