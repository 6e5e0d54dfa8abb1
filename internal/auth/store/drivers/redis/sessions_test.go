package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	sessredis "github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *sessredis.Sessions {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := sessredis.NewClient(ctx, sessredis.Options{Addr: host + ":" + port.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return sessredis.NewSessions(client)
}

func TestRedisSessions(t *testing.T) {
	sessions := startRedis(t)
	ctx := context.Background()
	now := time.Now()

	a := domain.Session{ID: "fp-a", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	b := domain.Session{ID: "fp-b", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)}
	c := domain.Session{ID: "fp-c", UserID: "u2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []domain.Session{a, b, c} {
		require.NoError(t, sessions.CreateSession(ctx, s))
	}

	t.Run("duplicate id", func(t *testing.T) {
		require.ErrorIs(t, sessions.CreateSession(ctx, a), store.ErrAlreadyExists)
	})

	t.Run("get", func(t *testing.T) {
		got, err := sessions.GetSession(ctx, "fp-a")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)

		_, err = sessions.GetSession(ctx, "fp-missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, sessions.DeleteSession(ctx, "fp-a"))
		require.NoError(t, sessions.DeleteSession(ctx, "fp-a"))
		_, err := sessions.GetSession(ctx, "fp-a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoke all of one user", func(t *testing.T) {
		require.NoError(t, sessions.DeleteUserSessions(ctx, "u1"))

		_, err := sessions.GetSession(ctx, "fp-b")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = sessions.GetSession(ctx, "fp-c")
		require.NoError(t, err, "other users keep their sessions")
	})

	t.Run("expired sessions are not stored", func(t *testing.T) {
		past := domain.Session{ID: "fp-old", UserID: "u3", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}
		require.NoError(t, sessions.CreateSession(ctx, past))
		_, err := sessions.GetSession(ctx, "fp-old")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	require.NoError(t, sessions.Ping(ctx))
}
