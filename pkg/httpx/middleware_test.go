package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var testCookies = httpx.CookieConfig{Name: "sid"}

func fakeResolver(sessions map[string]httpx.Identity) httpx.IdentityFunc {
	return func(_ context.Context, token string) (httpx.Identity, bool) {
		id, ok := sessions[token]
		return id, ok
	}
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "sid", Value: token})
	return req
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSessionMiddleware(t *testing.T) {
	resolve := fakeResolver(map[string]httpx.Identity{
		"good": {UserID: "u1", Username: "alice", Role: "user"},
	})

	var got httpx.Identity
	var gotOK bool
	var gotToken string
	h := httpx.SessionMiddleware(testCookies, resolve)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotOK = httpx.IdentityFromContext(r.Context())
		gotToken = httpx.SessionTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no cookie passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, gotOK)
		require.Empty(t, gotToken)
	})

	t.Run("unknown session passes through anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil), "stale"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, gotOK)
		require.Equal(t, "stale", gotToken)
	})

	t.Run("valid session attaches identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/", nil), "good"))
		require.True(t, gotOK)
		require.Equal(t, "alice", got.Username)
	})
}

func TestRequireAuthAndAdmin(t *testing.T) {
	resolve := fakeResolver(map[string]httpx.Identity{
		"user":  {UserID: "u1", Username: "alice", Role: "user"},
		"admin": {UserID: "u2", Username: "root", Role: httpx.RoleAdmin},
	})

	authed := httpx.Chain(okHandler(), httpx.SessionMiddleware(testCookies, resolve), httpx.RequireAuth())
	admin := httpx.Chain(okHandler(), httpx.SessionMiddleware(testCookies, resolve), httpx.RequireAdmin())

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		code    int
		body    string
	}{
		{"auth anonymous", authed, "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"auth stale", authed, "gone", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"auth user", authed, "user", http.StatusOK, ""},
		{"admin anonymous", admin, "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"admin as user", admin, "user", http.StatusForbidden, `{"error":"Admin access required"}`},
		{"admin as admin", admin, "admin", http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				withSession(req, tc.token)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)

			require.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				require.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestCookieConfig(t *testing.T) {
	cfg := httpx.CookieConfig{Name: "sid", Secure: true}

	rec := httptest.NewRecorder()
	cfg.Set(rec, "tok", time.Now().Add(time.Hour))
	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	require.Equal(t, "tok", set[0].Value)
	require.True(t, set[0].HttpOnly)
	require.True(t, set[0].Secure)
	require.Equal(t, http.SameSiteLaxMode, set[0].SameSite)
	require.Equal(t, "/", set[0].Path)

	rec = httptest.NewRecorder()
	cfg.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Less(t, cleared[0].MaxAge, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	require.Equal(t, "abc", cfg.Read(req))
	require.Equal(t, "", httpx.CookieConfig{}.Read(req))
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Username string `json:"username"`
	}

	t.Run("decodes", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice","extra":1}`))
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
		require.Equal(t, "alice", b.Username)
	})

	t.Run("rejects empty", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
		require.Error(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
	})

	t.Run("rejects trailing documents", func(t *testing.T) {
		var b body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"a"}{"username":"b"}`))
		require.Error(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
	})
}

func TestWriteJSONSetsNoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"n":1}`, rec.Body.String())
}
