package sqlite

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

func scanOAuthToken(row rowScanner) (domain.OAuthToken, error) {
	var (
		t                         domain.OAuthToken
		expires, created, updated int64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccessToken, &t.RefreshToken, &expires, &t.Scope,
		&created, &updated, &t.Version)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r *oauthTokensRepo) GetOAuthToken(ctx context.Context, userID string) (domain.OAuthToken, error) {
	t, err := scanOAuthToken(r.q.QueryRowContext(ctx,
		`SELECT `+oauthTokenColumns+` FROM oauth_tokens WHERE user_id = ?`, userID))
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
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO oauth_tokens (`+oauthTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at    = excluded.expires_at,
			scope         = excluded.scope,
			updated_at    = excluded.updated_at,
			version       = oauth_tokens.version + 1`,
		t.ID, t.UserID, t.AccessToken, t.RefreshToken, toMillis(t.ExpiresAt), t.Scope,
		toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	return mapWriteErr(err)
}

func (r *oauthTokensRepo) UpdateOAuthTokenIfVersion(
	ctx context.Context,
	t domain.OAuthToken,
	expectedVersion int64,
) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	err := expectOne(r.q.ExecContext(ctx, `
		UPDATE oauth_tokens
		SET access_token = ?, refresh_token = ?, expires_at = ?, scope = ?,
			updated_at = ?, version = version + 1
		WHERE user_id = ? AND version = ?`,
		t.AccessToken, t.RefreshToken, toMillis(t.ExpiresAt), t.Scope,
		toMillis(t.UpdatedAt), t.UserID, expectedVersion,
	))
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrConflict
	}
	return err
}

func (r *oauthTokensRepo) DeleteOAuthToken(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE user_id = ?`, userID)
	return err
}
