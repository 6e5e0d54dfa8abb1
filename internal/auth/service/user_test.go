package service

import (
	"context"
	"testing"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	svc := &UserService{Store: st}

	u, err := svc.ChangeRole(ctx, bob.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, u.Role)

	_, err = svc.ChangeRole(ctx, bob.ID, "superuser")
	require.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.ChangeRole(ctx, idx.New().String(), "user")
	require.ErrorIs(t, err, ErrUserNotFound)

	got, err := svc.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	admin := seedUser(t, st, "root", "secret1", domain.RoleAdmin)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	sessions := &SessionService{Store: st}
	svc := &UserService{Store: st}

	t.Run("self delete is refused and the row stays", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, admin.ID, admin.ID), ErrCannotDeleteSelf)

		_, err := svc.GetUserByID(ctx, admin.ID)
		require.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, admin.ID, idx.New().String()), ErrUserNotFound)
	})

	t.Run("deleting ends sessions", func(t *testing.T) {
		token, _, err := sessions.Login(ctx, bob)
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, admin.ID, bob.ID))

		_, err = svc.GetUserByID(ctx, bob.ID)
		require.ErrorIs(t, err, ErrUserNotFound)

		_, err = sessions.CurrentUser(ctx, token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	bob := seedUser(t, st, "bob", "secret1", domain.RoleUser)

	sessions := &SessionService{Store: st}
	svc := &UserService{Store: st}

	t.Run("too short is rejected before hashing", func(t *testing.T) {
		require.ErrorIs(t, svc.ResetPassword(ctx, bob.ID, "12345"), ErrWeakPassword)

		u, err := svc.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		require.Equal(t, bob.PasswordHash, u.PasswordHash)
	})

	t.Run("unknown user", func(t *testing.T) {
		require.ErrorIs(t, svc.ResetPassword(ctx, idx.New().String(), "secret2"), ErrUserNotFound)
	})

	t.Run("overwrites the hash and ends sessions", func(t *testing.T) {
		token, _, err := sessions.Login(ctx, bob)
		require.NoError(t, err)

		require.NoError(t, svc.ResetPassword(ctx, bob.ID, "123456"))

		u, err := svc.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		require.True(t, cryptox.VerifyPassword("123456", u.PasswordHash))
		require.False(t, cryptox.VerifyPassword("secret1", u.PasswordHash))

		_, err = sessions.CurrentUser(ctx, token)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedUser(t, st, "root", "secret1", domain.RoleAdmin)
	seedUser(t, st, "bob", "secret1", domain.RoleUser)

	users, err := (&UserService{Store: st}).List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}
