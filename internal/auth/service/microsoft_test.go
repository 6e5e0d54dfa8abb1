package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// tokenProvider is a stand-in for the Microsoft token endpoint.
type tokenProvider struct {
	srv   *httptest.Server
	calls atomic.Int32
	fail  atomic.Bool

	mu sync.Mutex
	// onRefresh runs inside the refresh request, before the response.
	onRefresh func()
	lastForm  url.Values
}

func (p *tokenProvider) form() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm
}

func (p *tokenProvider) setOnRefresh(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRefresh = fn
}

func newTokenProvider(t *testing.T) *tokenProvider {
	t.Helper()
	p := &tokenProvider{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		require.NoError(t, r.ParseForm())
		p.mu.Lock()
		p.lastForm = r.PostForm
		onRefresh := p.onRefresh
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if p.fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "AADSTS70008: refresh token has expired",
			})
			return
		}

		resp := map[string]any{
			"token_type": "Bearer",
			"expires_in": 3600,
			"scope":      "Mail.Read User.Read",
		}
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			resp["access_token"] = "access-from-code"
			resp["refresh_token"] = "refresh-from-code"
		case "refresh_token":
			if onRefresh != nil {
				onRefresh()
			}
			resp["access_token"] = "access-refreshed"
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *tokenProvider) endpoint() *oauth2.Endpoint {
	return &oauth2.Endpoint{
		AuthURL:  p.srv.URL + "/authorize",
		TokenURL: p.srv.URL + "/token",
	}
}

func newMicrosoftFixture(t *testing.T) (*MicrosoftService, *tokenProvider, store.Store, domain.User, *fakeClock) {
	t.Helper()

	st := newTestStore(t)
	u := seedUser(t, st, "alice", "secret1", domain.RoleUser)
	p := newTokenProvider(t)

	sealer, err := cryptox.NewSealer("test-token-encryption-key")
	require.NoError(t, err)

	clock := newFakeClock()
	svc := NewMicrosoftService(MicrosoftConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     p.endpoint(),
	}, st, sealer)
	svc.HTTPClient = p.srv.Client()
	svc.Now = clock.Now
	return svc, p, st, u, clock
}

func TestBuildAuthorizationURL(t *testing.T) {
	svc := NewMicrosoftService(MicrosoftConfig{ClientID: "cid", ClientSecret: "secret"}, nil, nil)

	raw := svc.BuildAuthorizationURL("https://ops.example.com/api/microsoft/callback", "state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	require.Equal(t, "login.microsoftonline.com", u.Host)
	require.Equal(t, "/common/oauth2/v2.0/authorize", u.Path)

	q := u.Query()
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "query", q.Get("response_mode"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "https://ops.example.com/api/microsoft/callback", q.Get("redirect_uri"))
	require.Equal(t,
		"openid profile email offline_access Mail.Read User.Read Chat.Read ChatMessage.Read Team.ReadBasic.All ChannelMessage.Read.All",
		q.Get("scope"))

	t.Run("tenant", func(t *testing.T) {
		svc := NewMicrosoftService(MicrosoftConfig{ClientID: "cid", ClientSecret: "s", TenantID: "contoso"}, nil, nil)
		u, err := url.Parse(svc.BuildAuthorizationURL("https://x/cb", "s"))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(u.Path, "/contoso/"))
	})
}

func TestIsConfigured(t *testing.T) {
	require.False(t, NewMicrosoftService(MicrosoftConfig{}, nil, nil).IsConfigured())
	require.False(t, NewMicrosoftService(MicrosoftConfig{ClientID: "cid"}, nil, nil).IsConfigured())
	require.True(t, NewMicrosoftService(MicrosoftConfig{ClientID: "cid", ClientSecret: "s"}, nil, nil).IsConfigured())

	_, err := NewMicrosoftService(MicrosoftConfig{}, nil, nil).ExchangeCode(context.Background(), "https://x/cb", "code")
	require.ErrorIs(t, err, ErrMicrosoftNotConfigured)
}

func TestExchangeCode(t *testing.T) {
	ctx := context.Background()
	svc, p, _, _, _ := newMicrosoftFixture(t)

	set, err := svc.ExchangeCode(ctx, "https://ops.example.com/api/microsoft/callback", "the-code")
	require.NoError(t, err)
	require.Equal(t, "access-from-code", set.AccessToken)
	require.Equal(t, "refresh-from-code", set.RefreshToken)
	require.Equal(t, time.Hour, set.ExpiresIn)
	require.Equal(t, "Mail.Read User.Read", set.Scope)

	require.Equal(t, "the-code", p.form().Get("code"))
	require.Equal(t, "client-secret", p.form().Get("client_secret"))
	require.Equal(t, "https://ops.example.com/api/microsoft/callback", p.form().Get("redirect_uri"))
	require.Contains(t, p.form().Get("scope"), "offline_access")

	t.Run("provider failure", func(t *testing.T) {
		p.fail.Store(true)
		defer p.fail.Store(false)

		_, err := svc.ExchangeCode(ctx, "https://x/cb", "bad-code")
		require.ErrorIs(t, err, ErrExchangeFailed)
		require.Contains(t, err.Error(), "AADSTS70008")
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc, p, _, _, _ := newMicrosoftFixture(t)

	set, err := svc.Refresh(ctx, "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "access-refreshed", set.AccessToken)
	require.Equal(t, "old-refresh", set.RefreshToken, "kept when the provider does not rotate")
	require.Equal(t, time.Hour, set.ExpiresIn)
	require.Equal(t, "Mail.Read User.Read", set.Scope)

	form := p.form()
	require.Equal(t, "refresh_token", form.Get("grant_type"))
	require.Equal(t, "old-refresh", form.Get("refresh_token"))
	require.Equal(t, "client-secret", form.Get("client_secret"))
	require.Equal(t, strings.Join(MicrosoftScopes, " "), form.Get("scope"))

	t.Run("provider failure", func(t *testing.T) {
		p.fail.Store(true)
		defer p.fail.Store(false)

		_, err := svc.Refresh(ctx, "old-refresh")
		require.ErrorIs(t, err, ErrRefreshFailed)
		require.Contains(t, err.Error(), "AADSTS70008")
	})

	t.Run("nothing to redeem", func(t *testing.T) {
		calls := p.calls.Load()
		_, err := svc.Refresh(ctx, "")
		require.ErrorIs(t, err, ErrRefreshFailed)
		require.Equal(t, calls, p.calls.Load())
	})
}

func TestGetValidAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("no record means no network call", func(t *testing.T) {
		svc, p, _, u, _ := newMicrosoftFixture(t)

		tok, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.False(t, ok)
		require.Empty(t, tok)
		require.EqualValues(t, 0, p.calls.Load())
	})

	t.Run("ten minutes left returns stored token", func(t *testing.T) {
		svc, p, _, u, _ := newMicrosoftFixture(t)
		require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
			AccessToken: "stored-access", RefreshToken: "stored-refresh", ExpiresIn: 10 * time.Minute,
		}))

		tok, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.True(t, ok)
		require.Equal(t, "stored-access", tok)
		require.EqualValues(t, 0, p.calls.Load())
	})

	t.Run("two minutes left refreshes once", func(t *testing.T) {
		svc, p, st, u, clock := newMicrosoftFixture(t)
		require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
			AccessToken: "stored-access", RefreshToken: "stored-refresh", ExpiresIn: 2 * time.Minute,
		}))
		before, err := st.OAuthTokens().GetOAuthToken(ctx, u.ID)
		require.NoError(t, err)

		tok, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.True(t, ok)
		require.Equal(t, "access-refreshed", tok)
		require.EqualValues(t, 1, p.calls.Load())
		require.Equal(t, "stored-refresh", p.form().Get("refresh_token"))
		require.Equal(t, strings.Join(MicrosoftScopes, " "), p.form().Get("scope"))
		require.Equal(t, "client-id", p.form().Get("client_id"))

		after, err := st.OAuthTokens().GetOAuthToken(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, before.Version+1, after.Version)
		require.WithinDuration(t, clock.Now().Add(time.Hour), after.ExpiresAt, 0)
		require.Equal(t, "Mail.Read User.Read", after.Scope)

		// The provider did not rotate, so the old refresh token stays.
		refresh, err := svc.Sealer.Open(after.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, "stored-refresh", refresh)

		// Sealed at rest.
		require.NotEqual(t, "access-refreshed", after.AccessToken)

		// Now fresh, so no second call.
		tok, ok = svc.GetValidAccessToken(ctx, u.ID)
		require.True(t, ok)
		require.Equal(t, "access-refreshed", tok)
		require.EqualValues(t, 1, p.calls.Load())
	})

	t.Run("refresh failure returns nothing and keeps the record", func(t *testing.T) {
		svc, p, st, u, _ := newMicrosoftFixture(t)
		require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
			AccessToken: "stored-access", RefreshToken: "stored-refresh", ExpiresIn: 2 * time.Minute,
		}))
		before, err := st.OAuthTokens().GetOAuthToken(ctx, u.ID)
		require.NoError(t, err)

		p.fail.Store(true)
		tok, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.False(t, ok)
		require.Empty(t, tok)
		require.EqualValues(t, 1, p.calls.Load())

		after, err := st.OAuthTokens().GetOAuthToken(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("expired token is never handed out", func(t *testing.T) {
		svc, p, _, u, clock := newMicrosoftFixture(t)
		require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
			AccessToken: "stored-access", RefreshToken: "stored-refresh", ExpiresIn: time.Hour,
		}))

		clock.Set(clock.Now().Add(2 * time.Hour))
		p.fail.Store(true)

		_, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.False(t, ok)
	})

	t.Run("lost race returns the winner's token", func(t *testing.T) {
		svc, p, _, u, _ := newMicrosoftFixture(t)
		require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
			AccessToken: "stored-access", RefreshToken: "stored-refresh", ExpiresIn: 2 * time.Minute,
		}))

		// Another request writes a fresh token while ours is in flight.
		p.setOnRefresh(func() {
			require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
				AccessToken: "winner-access", RefreshToken: "winner-refresh", ExpiresIn: time.Hour,
			}))
		})

		tok, ok := svc.GetValidAccessToken(ctx, u.ID)
		require.True(t, ok)
		require.Equal(t, "winner-access", tok)
	})
}

func TestStatusAndDisconnect(t *testing.T) {
	ctx := context.Background()
	svc, _, _, u, clock := newMicrosoftFixture(t)

	st, err := svc.Status(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, st.Configured)
	require.False(t, st.Connected)
	require.Nil(t, st.ExpiresAt)

	require.NoError(t, svc.Connect(ctx, u.ID, domain.TokenSet{
		AccessToken: "a", RefreshToken: "r", ExpiresIn: time.Hour,
	}))

	st, err = svc.Status(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, st.Connected)
	require.NotNil(t, st.ExpiresAt)
	require.WithinDuration(t, clock.Now().Add(time.Hour), *st.ExpiresAt, 0)

	require.NoError(t, svc.Disconnect(ctx, u.ID))
	require.NoError(t, svc.Disconnect(ctx, u.ID))

	st, err = svc.Status(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, st.Connected)
}
