package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	alice := seedUser(t, st, "alice", "secret1", domain.RoleUser)

	svc := &SessionService{Store: st}

	t.Run("correct credentials", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "alice", "secret1")
		require.NoError(t, err)
		require.Equal(t, alice.ID, u.ID)
	})

	t.Run("unknown user and wrong password look the same", func(t *testing.T) {
		_, errUnknown := svc.Authenticate(ctx, "mallory", "secret1")
		_, errWrong := svc.Authenticate(ctx, "alice", "wrong-password")

		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	t.Run("username is case sensitive", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "Alice", "secret1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("suffix past 72 bytes is not ignored", func(t *testing.T) {
		long := strings.Repeat("a", cryptox.MaxPasswordBytes)
		carol := seedUser(t, st, "carol", long, domain.RoleUser)

		u, err := svc.Authenticate(ctx, "carol", long)
		require.NoError(t, err)
		require.Equal(t, carol.ID, u.ID)

		_, err = svc.Authenticate(ctx, "carol", long+"-anything-appended")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	alice := seedUser(t, st, "alice", "secret1", domain.RoleUser)

	clock := newFakeClock()
	svc := &SessionService{Store: st, TTL: time.Hour, Now: clock.Now}

	token, expiresAt, err := svc.Login(ctx, alice)
	require.NoError(t, err)
	require.Len(t, token, 43)
	require.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	u, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, alice.ID, u.ID)

	t.Run("raw token is not stored", func(t *testing.T) {
		_, err := st.Sessions().GetSession(ctx, token)
		require.Error(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.CurrentUser(ctx, "not-a-session")
		require.ErrorIs(t, err, ErrUnauthenticated)

		_, err = svc.CurrentUser(ctx, "")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("logout twice", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, token))
		require.NoError(t, svc.Logout(ctx, token))
		require.NoError(t, svc.Logout(ctx, ""))

		_, err := svc.CurrentUser(ctx, token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	alice := seedUser(t, st, "alice", "secret1", domain.RoleUser)

	clock := newFakeClock()
	svc := &SessionService{Store: st, TTL: time.Hour, Now: clock.Now}

	token, expiresAt, err := svc.Login(ctx, alice)
	require.NoError(t, err)

	clock.Set(expiresAt.Add(-time.Millisecond))
	_, err = svc.CurrentUser(ctx, token)
	require.NoError(t, err)

	clock.Set(expiresAt)
	_, err = svc.CurrentUser(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentUserAfterDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	svc := &SessionService{Store: st}
	token, _, err := svc.Login(ctx, bob)
	require.NoError(t, err)

	require.NoError(t, st.Users().DeleteUser(ctx, bob.ID))

	_, err = svc.CurrentUser(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevokeUserSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	svc := &SessionService{Store: st}
	first, _, err := svc.Login(ctx, bob)
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, bob)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, svc.RevokeUserSessions(ctx, bob.ID))

	for _, tok := range []string{first, second} {
		_, err := svc.CurrentUser(ctx, tok)
		require.ErrorIs(t, err, ErrUnauthenticated)
	}
}
