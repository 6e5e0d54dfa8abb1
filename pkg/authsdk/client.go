package authsdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to the dashboard API as one browser would. The session
// cookie set by Login or Register is kept in the client's cookie jar, so
// each SDKClient represents at most one signed-in user.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with an empty cookie jar. Redirects are
// not followed so callers can inspect the Microsoft consent redirect.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // never fails without options

	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
