package authsdk

import (
	"context"
	"net/http"
)

// GetLiveness reads /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness reads /readyz. A degraded service answers 503, which comes
// back as an *APIError.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	h, err := call[HealthResponse](ctx, c, http.MethodGet, path, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
