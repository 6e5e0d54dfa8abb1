package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
)

// UserService holds the admin operations on accounts. Callers gate it
// behind RequireAdmin; it does not re-check the actor's role.
type UserService struct {
	Store store.Store

	// Sessions is where login sessions live, so that deleting a user or
	// resetting a password logs them out. Defaults to Store.Sessions().
	Sessions store.Sessions
}

func (s *UserService) sessions() store.Sessions {
	if s.Sessions != nil {
		return s.Sessions
	}
	return s.Store.Sessions()
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// ChangeRole sets the role of userID and returns the updated user.
func (s *UserService) ChangeRole(ctx context.Context, userID string, role string) (domain.User, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().UpdateRole(ctx, userID, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user role changed",
		slog.String("target_user_id", userID),
		slog.String("role", string(r)),
	)
	return s.GetUserByID(ctx, userID)
}

// Delete removes a user. An admin cannot delete their own account. The
// user's OAuth record and SQL sessions go with it through the schema's
// cascades; sessions in an external store are revoked explicitly.
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	log := slogx.FromContext(ctx)

	if actorID == userID {
		log.Warn("admin attempted to delete own account")
		return ErrCannotDeleteSelf
	}

	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.sessions().DeleteUserSessions(ctx, userID); err != nil {
		log.Error("failed to revoke sessions of deleted user",
			slog.String("target_user_id", userID),
			slog.Any("error", err),
		)
	}

	log.Info("user deleted", slog.String("target_user_id", userID))
	return nil
}

// ResetPassword overwrites the user's password hash and ends their
// sessions. The length rule is checked before hashing.
func (s *UserService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	log := slogx.FromContext(ctx)

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.sessions().DeleteUserSessions(ctx, userID); err != nil {
		log.Error("failed to revoke sessions after password reset",
			slog.String("target_user_id", userID),
			slog.Any("error", err),
		)
	}

	log.Info("user password reset", slog.String("target_user_id", userID))
	return nil
}
