package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/sqlite/sqlitetest"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source shared by services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	return sqlitetest.New(t)
}

func seedUser(t *testing.T, st store.Store, username, password string, role domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

type sentInvite struct {
	email, token, inviter string
}

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	ok         bool
	sent       []sentInvite
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) SendInvitation(_ context.Context, email, token, inviterName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentInvite{email, token, inviterName})
	return m.ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
