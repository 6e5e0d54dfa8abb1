package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/graph"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/pkg/authsdk"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/jwtx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

const (
	microsoftProvider     = "microsoft"
	microsoftCallbackPath = "/api/microsoft/callback"
	integrationsPath      = "/integrations"

	// oauthStateCookie holds the fingerprint of the state handed to the
	// provider. Only the browser that started the flow can finish it.
	oauthStateCookie = "itops_oauth_state"
)

// MicrosoftHandler drives the Microsoft 365 connection: consent redirect,
// callback, status and the Graph passthrough reads.
type MicrosoftHandler struct {
	Microsoft *service.MicrosoftService
	Graph     *graph.Client
	State     *jwtx.StateSigner
	Cookies   httpx.CookieConfig
	AppURL    string

	// RedirectURL, when set, is used instead of deriving the callback URL
	// from the request.
	RedirectURL string
}

// redirectURI is the callback URL registered with Azure AD. Behind a proxy
// the scheme comes from X-Forwarded-Proto.
func (h *MicrosoftHandler) redirectURI(r *http.Request) string {
	if h.RedirectURL != "" {
		return h.RedirectURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + microsoftCallbackPath
}

// finish sends the browser back to the integrations page with the outcome.
func (h *MicrosoftHandler) finish(w http.ResponseWriter, r *http.Request, key, value string) {
	q := url.Values{}
	q.Set(key, value)
	target := strings.TrimRight(h.AppURL, "/") + integrationsPath + "?" + q.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleStatus godoc
//
//	@Summary		Microsoft connection status
//	@Tags			Microsoft
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{object}	authsdk.MicrosoftStatusResponse
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Router			/api/microsoft/status [get].
func (h *MicrosoftHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	st, err := h.Microsoft.Status(ctx, id.UserID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to read microsoft status", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MicrosoftStatusResponse{
		Configured: st.Configured,
		Connected:  st.Connected,
		ExpiresAt:  st.ExpiresAt,
	})
}

// HandleAuthorize godoc
//
//	@Summary		Start the Microsoft consent flow
//	@Description	Redirects to the Microsoft identity platform. The state parameter is a short-lived
//	@Description	signed token naming the current user, bound to the browser by a cookie scoped to
//	@Description	the callback path.
//	@Tags			Microsoft
//	@Security		SessionCookie
//	@Success		302
//	@Failure		400	{object}	authsdk.ErrorResponse	"Integration not configured"
//	@Router			/api/microsoft/authorize [get].
func (h *MicrosoftHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	if !h.Microsoft.IsConfigured() {
		httpx.WriteError(w, http.StatusBadRequest, "Microsoft integration not configured", "")
		return
	}

	state, err := h.State.Sign(id.UserID, microsoftProvider)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign oauth state", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	h.Cookies.SetFlow(w, oauthStateCookie, microsoftCallbackPath, cryptox.FingerprintToken(state), h.State.TTL())
	http.Redirect(w, r, h.Microsoft.BuildAuthorizationURL(h.redirectURI(r), state), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Microsoft consent callback
//	@Description	Exchanges the authorization code and stores the tokens, then redirects to the
//	@Description	integrations page with success=connected or error=<reason>.
//	@Tags			Microsoft
//	@Param			code	query	string	false	"Authorization code"
//	@Param			state	query	string	false	"Signed state"
//	@Param			error	query	string	false	"Provider error"
//	@Success		302
//	@Router			/api/microsoft/callback [get].
func (h *MicrosoftHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		log.Warn("microsoft consent declined",
			slog.String("error", providerErr),
			slog.String("error_description", q.Get("error_description")),
		)
		h.finish(w, r, "error", providerErr)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.finish(w, r, "error", "missing_params")
		return
	}

	claims, err := h.State.Verify(state, microsoftProvider)
	if err != nil {
		log.Warn("rejected oauth state", slog.Any("error", err))
		h.finish(w, r, "error", "invalid_state")
		return
	}

	if !h.stateIssuedHere(r, state) {
		log.Warn("oauth state was not issued to this browser",
			slog.String("state_user_id", claims.Subject),
		)
		h.finish(w, r, "error", "invalid_state")
		return
	}

	// A browser signed in as someone else must not attach tokens to the
	// user named in the state.
	if id, ok := httpx.IdentityFromContext(ctx); ok && id.UserID != claims.Subject {
		log.Warn("oauth state names a different user",
			slog.String("state_user_id", claims.Subject),
		)
		h.finish(w, r, "error", "invalid_state")
		return
	}

	// The state is spent from here on.
	h.Cookies.ClearFlow(w, oauthStateCookie, microsoftCallbackPath)

	set, err := h.Microsoft.ExchangeCode(ctx, h.redirectURI(r), code)
	if err != nil {
		log.Error("microsoft code exchange failed", slog.Any("error", err))
		h.finish(w, r, "error", "token_exchange_failed")
		return
	}

	if err := h.Microsoft.Connect(ctx, claims.Subject, set); err != nil {
		log.Error("failed to store microsoft tokens", slog.Any("error", err))
		h.finish(w, r, "error", "storage_failed")
		return
	}

	h.finish(w, r, "success", "connected")
}

// stateIssuedHere reports whether r carries the cookie HandleAuthorize set
// alongside state.
func (h *MicrosoftHandler) stateIssuedHere(r *http.Request, state string) bool {
	ck, err := r.Cookie(oauthStateCookie)
	if err != nil || ck.Value == "" {
		return false
	}
	want := cryptox.FingerprintToken(state)
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(want)) == 1
}

// HandleDisconnect godoc
//
//	@Summary		Disconnect Microsoft
//	@Tags			Microsoft
//	@Security		SessionCookie
//	@Success		204
//	@Router			/api/microsoft/disconnect [delete].
func (h *MicrosoftHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	if err := h.Microsoft.Disconnect(ctx, id.UserID); err != nil {
		slogx.FromContext(ctx).Error("failed to disconnect microsoft", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEmails godoc
//
//	@Summary		Recent emails
//	@Description	Lists the newest messages from the user's mailbox as Graph returns them.
//	@Tags			Microsoft
//	@Produce		json
//	@Security		SessionCookie
//	@Param			top	query		int	false	"Number of messages (default 20, max 50)"
//	@Success		200	{array}		object
//	@Failure		503	{object}	authsdk.ErrorResponse	"Microsoft integration unavailable"
//	@Router			/api/microsoft/emails [get].
func (h *MicrosoftHandler) HandleEmails(w http.ResponseWriter, r *http.Request) {
	top, _ := strconv.Atoi(r.URL.Query().Get("top"))
	h.passthrough(w, r, func(token string) ([]json.RawMessage, error) {
		return h.Graph.Emails(r.Context(), token, top)
	})
}

// HandleChats godoc
//
//	@Summary		Teams chats
//	@Tags			Microsoft
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{array}		object
//	@Failure		503	{object}	authsdk.ErrorResponse	"Microsoft integration unavailable"
//	@Router			/api/microsoft/chats [get].
func (h *MicrosoftHandler) HandleChats(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, func(token string) ([]json.RawMessage, error) {
		return h.Graph.Chats(r.Context(), token)
	})
}

// HandleTeams godoc
//
//	@Summary		Joined teams
//	@Tags			Microsoft
//	@Produce		json
//	@Security		SessionCookie
//	@Success		200	{array}		object
//	@Failure		503	{object}	authsdk.ErrorResponse	"Microsoft integration unavailable"
//	@Router			/api/microsoft/teams [get].
func (h *MicrosoftHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, func(token string) ([]json.RawMessage, error) {
		return h.Graph.Teams(r.Context(), token)
	})
}

func (h *MicrosoftHandler) passthrough(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(accessToken string) ([]json.RawMessage, error),
) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	token, ok := h.Microsoft.GetValidAccessToken(ctx, id.UserID)
	if !ok {
		httpx.WriteError(w, http.StatusServiceUnavailable, "Microsoft integration unavailable", "")
		return
	}

	items, err := fetch(token)
	if err != nil {
		if errors.Is(err, graph.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "Microsoft integration unavailable", "")
			return
		}
		slogx.FromContext(ctx).Error("graph request failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusBadGateway, "Failed to fetch from Microsoft", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, items)
}
