package service

import (
	"context"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSeed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &BootstrapService{Store: st}

	done, err := svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, done)

	admin, err := svc.Seed(ctx, "root", "secret1", "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.Equal(t, "root", admin.DisplayName)

	_, err = svc.Seed(ctx, "second", "secret1", "")
	require.ErrorIs(t, err, ErrBootstrapAlready)

	t.Run("create admin works on a populated store", func(t *testing.T) {
		u, err := svc.CreateAdmin(ctx, "ops", "secret1", "Ops Lead")
		require.NoError(t, err)
		require.Equal(t, "Ops Lead", u.DisplayName)

		_, err = svc.CreateAdmin(ctx, "ops", "secret1", "")
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("validates input", func(t *testing.T) {
		_, err := svc.CreateAdmin(ctx, "x", "secret1", "")
		require.ErrorIs(t, err, ErrInvalidUsername)

		_, err = svc.CreateAdmin(ctx, "valid-name", "short", "")
		require.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	clock := newFakeClock()
	expired := &SessionService{Store: st, TTL: 1, Now: clock.Now}
	_, _, err := expired.Login(ctx, bob)
	require.NoError(t, err)

	live := &SessionService{Store: st}
	token, _, err := live.Login(ctx, bob)
	require.NoError(t, err)

	hk := NewHousekeepingService(st.Sessions(), discardLogger(), 0)
	require.Equal(t, time.Hour, hk.Interval)
	hk.Cleanup(ctx)

	_, err = live.CurrentUser(ctx, token)
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	st := newTestStore(t)

	hk := NewHousekeepingService(st.Sessions(), discardLogger(), time.Millisecond)
	hk.Stop() // never started

	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}
