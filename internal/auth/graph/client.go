// Package graph reads a user's mailbox and Teams data from Microsoft Graph.
// Items are passed through as the provider's raw JSON.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const (
	DefaultEmailCount = 20
	MaxEmailCount     = 50
)

// ErrUnauthorized means Graph rejected the access token.
var ErrUnauthorized = errors.New("graph: access token rejected")

// Error is a non-2xx answer from Graph.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: status %d: %s", e.Status, e.Message)
}

type Client struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the transport under the bearer token. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Emails lists the newest messages in the user's mailbox.
func (c *Client) Emails(ctx context.Context, accessToken string, top int) ([]json.RawMessage, error) {
	if top <= 0 {
		top = DefaultEmailCount
	}
	if top > MaxEmailCount {
		top = MaxEmailCount
	}

	q := url.Values{}
	q.Set("$top", strconv.Itoa(top))
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$select", "id,subject,bodyPreview,from,receivedDateTime,isRead,importance")
	return c.list(ctx, accessToken, "/me/messages", q)
}

// Chats lists the user's Teams chats, most recently active first.
func (c *Client) Chats(ctx context.Context, accessToken string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("$top", "50")
	q.Set("$orderby", "lastMessagePreview/createdDateTime desc")
	return c.list(ctx, accessToken, "/me/chats", q)
}

// Teams lists the teams the user belongs to.
func (c *Client) Teams(ctx context.Context, accessToken string) ([]json.RawMessage, error) {
	return c.list(ctx, accessToken, "/me/joinedTeams", nil)
}

func (c *Client) httpClient(ctx context.Context, accessToken string) *http.Client {
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

func (c *Client) list(ctx context.Context, accessToken, path string, q url.Values) ([]json.RawMessage, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u := strings.TrimSuffix(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient(ctx, accessToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var page struct {
		Value []json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("graph: decode %s: %w", path, err)
	}
	if page.Value == nil {
		page.Value = []json.RawMessage{}
	}
	return page.Value, nil
}
