package httpx

import (
	"net/http"
	"time"
)

// DefaultSessionCookie is the cookie name used when CookieConfig.Name is empty.
const DefaultSessionCookie = "itops_session"

// CookieConfig describes the session cookie. The cookie is always HttpOnly
// and SameSite=Lax; Secure is on outside development.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultSessionCookie
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// Read returns the session token presented on r, or "".
func (c CookieConfig) Read(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}

// Set issues the session cookie valid until expiresAt.
func (c CookieConfig) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     c.path(),
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the client.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     c.path(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFlow issues a short-lived cookie scoped to path. It carries the
// browser half of a redirect round trip such as the OAuth consent flow.
func (c CookieConfig) SetFlow(w http.ResponseWriter, name, path, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   max(int(ttl.Seconds()), 1),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearFlow expires a cookie issued by SetFlow.
func (c CookieConfig) ClearFlow(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
