package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
)

type oauthTokensRepo struct {
	q querier
}

const oauthTokenColumns = `id, user_id, access_token, refresh_token, expires_at, scope, created_at, updated_at, version`

func (r *oauthTokensRepo) GetOAuthToken(ctx context.Context, userID string) (domain.OAuthToken, error) {
	const q = `SELECT ` + oauthTokenColumns + ` FROM oauth_tokens WHERE user_id = $1`
	var t domain.OAuthToken
	err := r.q.QueryRow(ctx, q, userID).Scan(&t.ID, &t.UserID, &t.AccessToken, &t.RefreshToken,
		&t.ExpiresAt, &t.Scope, &t.CreatedAt, &t.UpdatedAt, &t.Version)
	if err != nil {
		return domain.OAuthToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *oauthTokensRepo) UpsertOAuthToken(ctx context.Context, t domain.OAuthToken) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	const q = `
INSERT INTO oauth_tokens (id, user_id, access_token, refresh_token, expires_at, scope, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	expires_at = EXCLUDED.expires_at,
	scope = EXCLUDED.scope,
	updated_at = EXCLUDED.updated_at,
	version = oauth_tokens.version + 1`
	_, err := r.q.Exec(ctx, q, t.ID, t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresAt, t.Scope,
		t.CreatedAt, t.UpdatedAt)
	return mapWriteErr(err)
}

func (r *oauthTokensRepo) UpdateOAuthTokenIfVersion(ctx context.Context, t domain.OAuthToken, expectedVersion int64) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	const q = `
UPDATE oauth_tokens
SET access_token = $3, refresh_token = $4, expires_at = $5, scope = $6,
	updated_at = $7, version = version + 1
WHERE user_id = $1 AND version = $2`
	err := expectOne(r.q.Exec(ctx, q, t.UserID, expectedVersion, t.AccessToken, t.RefreshToken, t.ExpiresAt,
		t.Scope, t.UpdatedAt))
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrConflict
	}
	return err
}

func (r *oauthTokensRepo) DeleteOAuthToken(ctx context.Context, userID string) error {
	const q = `DELETE FROM oauth_tokens WHERE user_id = $1`
	_, err := r.q.Exec(ctx, q, userID)
	return err
}
