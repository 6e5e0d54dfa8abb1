package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/graph"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/ehsh01/it-ops-dashboard/pkg/jwtx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"

	_ "github.com/ehsh01/it-ops-dashboard/api/dashboard" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is a dependency readyz checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookies      httpx.CookieConfig

	store store.Store

	// SessionStore is pinged by readyz when sessions live outside the
	// database.
	SessionStore Pinger

	SessionService    *service.SessionService
	UserService       *service.UserService
	InvitationService *service.InvitationService
	MicrosoftService  *service.MicrosoftService
	Mailer            service.Mailer
	Graph             *graph.Client
	StateSigner       *jwtx.StateSigner

	// AppURL is the public origin of the web app; invite links and OAuth
	// callback redirects point at it.
	AppURL string

	// MicrosoftRedirectURL overrides the callback URL derived from the
	// request.
	MicrosoftRedirectURL string
}

func NewRouter(
	buildVersion string,
	st store.Store,
	cookies httpx.CookieConfig,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cookies:      cookies,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SessionMiddleware(r.cookies, r.resolveIdentity),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdminUsers()
	r.registerAdminInvitations()
	r.registerMicrosoft()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			IT Ops Dashboard API
//	@version		0.1.0
//	@description	Session-authenticated API behind the IT Ops Dashboard: login, invitation-based
//	@description	registration, user administration and the Microsoft 365 connection.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						itops_session
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// resolveIdentity is the SessionMiddleware lookup.
func (r *Router) resolveIdentity(ctx context.Context, token string) (httpx.Identity, bool) {
	u, err := r.SessionService.CurrentUser(ctx, token)
	if err != nil {
		if !errors.Is(err, service.ErrUnauthenticated) {
			slogx.FromContext(ctx).Error("failed to resolve session", slog.Any("error", err))
		}
		return httpx.Identity{}, false
	}
	return httpx.Identity{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}, true
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Sessions:    r.SessionService,
		Users:       r.UserService,
		Invitations: r.InvitationService,
		Cookies:     r.cookies,
	}

	// POST /login - strict rate limit by IP + username to prevent brute force
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /validate-invite - moderate, slows token guessing
	r.Mux.Handle("GET /api/auth/validate-invite",
		httpx.Chain(http.HandlerFunc(h.HandleValidateInvite),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /user - soft, answers null when signed out
	r.Mux.Handle("GET /api/user",
		httpx.Chain(http.HandlerFunc(h.HandleCurrentUser),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdminUsers() {
	h := &AdminUsersHandler{Users: r.UserService}

	admin := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /api/admin/users", admin(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("PATCH /api/admin/users/{id}", admin(h.HandleChangeRole, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/admin/users/{id}", admin(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/admin/users/{id}/reset-password", admin(h.HandleResetPassword, httpx.ModerateLimit))
}

func (r *Router) registerAdminInvitations() {
	h := &AdminInvitationsHandler{
		Invitations: r.InvitationService,
		Mailer:      r.Mailer,
		AppURL:      r.AppURL,
	}

	admin := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.RequireAdmin(),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /api/admin/invitations", admin(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /api/admin/invitations", admin(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/admin/invitations/{id}", admin(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/admin/email-status", admin(h.HandleEmailStatus, httpx.LenientLimit))
}

func (r *Router) registerMicrosoft() {
	h := &MicrosoftHandler{
		Microsoft:   r.MicrosoftService,
		Graph:       r.Graph,
		State:       r.StateSigner,
		Cookies:     r.cookies,
		AppURL:      r.AppURL,
		RedirectURL: r.MicrosoftRedirectURL,
	}

	authed := func(fn http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(fn,
			httpx.RequireAuth(),
			httpx.RateLimitByUser(limit),
		)
	}

	r.Mux.Handle("GET /api/microsoft/status", authed(h.HandleStatus, httpx.LenientLimit))
	r.Mux.Handle("GET /api/microsoft/authorize", authed(h.HandleAuthorize, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /api/microsoft/disconnect", authed(h.HandleDisconnect, httpx.ModerateLimit))
	r.Mux.Handle("GET /api/microsoft/emails", authed(h.HandleEmails, httpx.LenientLimit))
	r.Mux.Handle("GET /api/microsoft/chats", authed(h.HandleChats, httpx.LenientLimit))
	r.Mux.Handle("GET /api/microsoft/teams", authed(h.HandleTeams, httpx.LenientLimit))

	// The callback is authenticated by the signed state, not the session.
	r.Mux.Handle("GET /api/microsoft/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.SessionStore),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
