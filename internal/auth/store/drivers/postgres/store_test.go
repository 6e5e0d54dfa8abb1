package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })
	return NewStoreWithPool(mock, ""), mock
}

var userCols = []string{"id", "username", "display_name", "password_hash", "role", "created_at", "updated_at"}

var invitationCols = []string{
	"id", "email", "token_hash", "role", "invited_by", "status",
	"created_at", "expires_at", "accepted_at", "accepted_by",
}

func strPtr(s string) *string { return &s }

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/app?sslmode=disable", migrateURL("postgres://u:p@db:5432/app?sslmode=disable"))
	require.Equal(t, "pgx5://db/app", migrateURL("postgresql://db/app"))
	require.Equal(t, "pgx5://db/app", migrateURL("pgx5://db/app"))
}

func TestApplyMigrationsWithoutDSN(t *testing.T) {
	st, _ := newMockStore(t)
	require.ErrorIs(t, st.ApplyMigrations(), ErrNoDSN)
}

func TestUsersRepo_Create(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	u := domain.User{ID: "u1", Username: "alice", DisplayName: "Alice", PasswordHash: "h", Role: domain.RoleUser}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u1", "alice", "Alice", "h", "user", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.Users().CreateUser(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u1", "alice", "Alice", "h", "user", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, st.Users().CreateUser(ctx, u), store.ErrAlreadyExists)
}

func TestUsersRepo_GetByUsername(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow("u1", "alice", "Alice", "h", "admin", now, now))
	u, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, u.Role)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("bob").
		WillReturnError(pgx.ErrNoRows)
	_, err = st.Users().GetUserByUsername(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersRepo_MutationsReportMissingRows(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE users SET role = \$2`).
		WithArgs("ghost", "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, st.Users().UpdateRole(ctx, "ghost", domain.RoleAdmin), store.ErrNotFound)

	mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
		WithArgs("u1", "new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, st.Users().UpdatePasswordHash(ctx, "u1", "new"))

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, st.Users().DeleteUser(ctx, "ghost"), store.ErrNotFound)
}

func TestUsersRepo_IsEmpty(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM users)`)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	empty, err := st.Users().IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestInvitationsRepo_Accept(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()
	acceptedAt := now

	mock.ExpectQuery(`UPDATE invitations SET status = 'accepted'`).
		WithArgs("hash", now, strPtr("u2")).
		WillReturnRows(pgxmock.NewRows(invitationCols).AddRow(
			"i1", "alice@example.com", "hash", "user", strPtr("u1"), "accepted",
			now.Add(-time.Hour), now.Add(time.Hour), &acceptedAt, strPtr("u2"),
		))
	inv, err := st.Invitations().AcceptInvitation(ctx, "hash", now, "u2")
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, inv.Status)
	require.Equal(t, "u1", inv.InvitedBy)
	require.Equal(t, "u2", inv.AcceptedBy)
	require.NotNil(t, inv.AcceptedAt)

	mock.ExpectQuery(`UPDATE invitations SET status = 'accepted'`).
		WithArgs("hash", now, strPtr("u3")).
		WillReturnError(pgx.ErrNoRows)
	_, err = st.Invitations().AcceptInvitation(ctx, "hash", now, "u3")
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestInvitationsRepo_List(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM invitations ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows(invitationCols).
			AddRow("i2", "b@example.com", "h2", "admin", (*string)(nil), "pending", now, now.Add(time.Hour), (*time.Time)(nil), (*string)(nil)).
			AddRow("i1", "a@example.com", "h1", "user", strPtr("u1"), "pending", now.Add(-time.Minute), now.Add(time.Hour), (*time.Time)(nil), (*string)(nil)))
	list, err := st.Invitations().ListInvitations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "i2", list[0].ID)
	require.Empty(t, list[0].InvitedBy)
	require.Nil(t, list[0].AcceptedAt)
}

func TestInvitationsRepo_DeleteMissing(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM invitations WHERE id = \$1`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, st.Invitations().DeleteInvitation(context.Background(), "nope"), store.ErrNotFound)
}

func TestOAuthTokensRepo_ConditionalUpdate(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()
	tok := domain.OAuthToken{UserID: "u1", AccessToken: "a", RefreshToken: "r", ExpiresAt: now, Scope: "s", UpdatedAt: now}

	mock.ExpectExec(`UPDATE oauth_tokens`).
		WithArgs("u1", int64(3), "a", "r", tok.ExpiresAt, "s", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, st.OAuthTokens().UpdateOAuthTokenIfVersion(ctx, tok, 3))

	mock.ExpectExec(`UPDATE oauth_tokens`).
		WithArgs("u1", int64(3), "a", "r", tok.ExpiresAt, "s", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, st.OAuthTokens().UpdateOAuthTokenIfVersion(ctx, tok, 3), store.ErrConflict)
}

func TestOAuthTokensRepo_UpsertKeepsCallerTimestamps(t *testing.T) {
	st, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	tok := domain.OAuthToken{
		ID: "t1", UserID: "u1", AccessToken: "a", RefreshToken: "r",
		ExpiresAt: updated.Add(time.Hour), Scope: "s", CreatedAt: created, UpdatedAt: updated,
	}

	mock.ExpectExec(`INSERT INTO oauth_tokens`).
		WithArgs("t1", "u1", "a", "r", tok.ExpiresAt, "s", created, updated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.OAuthTokens().UpsertOAuthToken(context.Background(), tok))
}

func TestOAuthTokensRepo_Get(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM oauth_tokens WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "access_token", "refresh_token", "expires_at", "scope", "created_at", "updated_at", "version",
		}).AddRow("t1", "u1", "a", "r", now, "s", now, now, int64(7)))
	tok, err := st.OAuthTokens().GetOAuthToken(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 7, tok.Version)
}

func TestSessionsRepo_GetExpiredIsNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`FROM sessions WHERE id = \$1 AND expires_at > now\(\)`).
		WithArgs("sid").
		WillReturnError(pgx.ErrNoRows)
	_, err := st.Sessions().GetSession(context.Background(), "sid")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
			WithArgs("u1").
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectCommit()

		require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Sessions().DeleteUserSessions(ctx, "u1")
		}))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		st, mock := newMockStore(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		require.ErrorIs(t, st.WithTx(ctx, func(tx store.Tx) error { return boom }), boom)
	})

	t.Run("refuses to nest", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.WithTx(ctx, func(store.Tx) error { return nil })
		})
		require.ErrorIs(t, err, store.ErrNestedTx)
	})
}
