package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already has users")

// BootstrapService seeds administrator accounts. Without it a fresh install
// has nobody who can send the first invitation.
type BootstrapService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// CreateAdmin inserts an admin account unconditionally. The CLI uses it.
func (s *BootstrapService) CreateAdmin(
	ctx context.Context,
	username string,
	password string,
	displayName string,
) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Validate input
	if err := ValidateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.User{}, err
	}

	// 2. Hash password
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if displayName == "" {
		displayName = username
	}
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. Persist
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		l.Error("failed to create admin user", slog.Any("error", err))
		return domain.User{}, err
	}

	l.Info("admin user created", slog.String("admin_user_id", u.ID))
	return u, nil
}

// Seed creates the first admin only while the user table is empty. It
// returns ErrBootstrapAlready once anyone exists.
func (s *BootstrapService) Seed(
	ctx context.Context,
	username string,
	password string,
	displayName string,
) (domain.User, error) {
	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if bootstrapped {
		return domain.User{}, ErrBootstrapAlready
	}
	return s.CreateAdmin(ctx, username, password, displayName)
}
