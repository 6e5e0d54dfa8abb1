package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// send performs one round trip and returns the status and the fully read
// body. A non-nil body is sent as JSON.
func (c *SDKClient) send(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("authsdk: encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("authsdk: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("authsdk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("authsdk: read %s %s: %w", method, path, err)
	}
	return resp, raw, nil
}

// call decodes the body into a T when the status is one of want, and into
// an *APIError otherwise.
func call[T any](ctx context.Context, c *SDKClient, method, path string, body any, want ...int) (T, error) {
	var out T
	resp, raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return out, err
	}
	if !slices.Contains(want, resp.StatusCode) {
		return out, newAPIError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("authsdk: decode %s %s: %w", method, path, err)
	}
	return out, nil
}

// callNoContent expects a bare 204.
func (c *SDKClient) callNoContent(ctx context.Context, method, path string, body any) error {
	resp, raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return newAPIError(resp.StatusCode, raw)
	}
	return nil
}
