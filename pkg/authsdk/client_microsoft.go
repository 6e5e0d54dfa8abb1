package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

func (c *SDKClient) MicrosoftStatus(ctx context.Context) (*MicrosoftStatusResponse, error) {
	out, err := call[MicrosoftStatusResponse](ctx, c, http.MethodGet, "/api/microsoft/status", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MicrosoftAuthorizeURL starts the connect flow and returns the consent URL
// the server redirected to.
func (c *SDKClient) MicrosoftAuthorizeURL(ctx context.Context) (string, error) {
	resp, raw, err := c.send(ctx, http.MethodGet, "/api/microsoft/authorize", nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusFound {
		return "", newAPIError(resp.StatusCode, raw)
	}
	return resp.Header.Get("Location"), nil
}

func (c *SDKClient) MicrosoftDisconnect(ctx context.Context) error {
	return c.callNoContent(ctx, http.MethodDelete, "/api/microsoft/disconnect", nil)
}

// MicrosoftEmails returns the user's recent messages as the JSON array
// Graph produced. A top of zero leaves the page size to the server.
func (c *SDKClient) MicrosoftEmails(ctx context.Context, top int) (json.RawMessage, error) {
	path := "/api/microsoft/emails"
	if top > 0 {
		path += "?top=" + strconv.Itoa(top)
	}
	return call[json.RawMessage](ctx, c, http.MethodGet, path, nil, http.StatusOK)
}

func (c *SDKClient) MicrosoftChats(ctx context.Context) (json.RawMessage, error) {
	return call[json.RawMessage](ctx, c, http.MethodGet, "/api/microsoft/chats", nil, http.StatusOK)
}

func (c *SDKClient) MicrosoftTeams(ctx context.Context) (json.RawMessage, error) {
	return call[json.RawMessage](ctx, c, http.MethodGet, "/api/microsoft/teams", nil, http.StatusOK)
}
