package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// KeyExtractor names the rate limit bucket a request is charged to. An
// empty key means the request is not limited.
type KeyExtractor func(*http.Request) string

// TrustProxyHeaders makes IPKeyExtractor believe X-Forwarded-For and
// X-Real-IP. Enable it only behind a proxy that overwrites them, or any
// client can pick its own rate limit bucket.
var TrustProxyHeaders = false

// IPKeyExtractor returns the socket peer address. With TrustProxyHeaders
// it prefers the first X-Forwarded-For hop, then X-Real-IP.
func IPKeyExtractor(r *http.Request) string {
	if TrustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor returns the signed-in user's ID, or "" for anonymous
// requests.
func UserIDKeyExtractor(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}

// QueryKeyExtractor returns a query parameter.
func QueryKeyExtractor(param string) KeyExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if k := extract(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor returns a top-level string field of a JSON body,
// lower-cased and trimmed. The body is put back for the handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil || r.Body == http.NoBody {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var body map[string]json.RawMessage
		if json.Unmarshal(raw, &body) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(body[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}
