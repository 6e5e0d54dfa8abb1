package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
)

// DefaultSessionTTL is used when SessionService.TTL is zero.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means the session token does not name a live user.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// SessionService authenticates users and manages their server-side login
// sessions. The raw session token only ever exists in the cookie; the
// store keys sessions by its fingerprint.
type SessionService struct {
	Store store.Store

	// Sessions overrides where sessions live (e.g. Redis). Defaults to
	// Store.Sessions().
	Sessions store.Sessions

	TTL time.Duration
	Now func() time.Time
}

func (s *SessionService) sessions() store.Sessions {
	if s.Sessions != nil {
		return s.Sessions
	}
	return s.Store.Sessions()
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

// Authenticate checks a username and password. The lookup is exact and
// case-sensitive. Unknown users still pay for one bcrypt comparison.
func (s *SessionService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if username == "" || password == "" {
		cryptox.BurnPasswordCheck(password)
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(password)
			log.Info("login failed", slog.String("reason", "invalid_credentials"))
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user for login", slog.Any("error", err))
		return domain.User{}, err
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) {
		log.Info("login failed", slog.String("reason", "invalid_credentials"))
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Login opens a session for user and returns the raw token for the cookie.
func (s *SessionService) Login(ctx context.Context, user domain.User) (string, time.Time, error) {
	raw, fingerprint, err := cryptox.NewOpaqueToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	sess := domain.Session{
		ID:        fingerprint,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.sessions().CreateSession(ctx, sess); err != nil {
		slogx.FromContext(ctx).Error("failed to create session",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return "", time.Time{}, err
	}

	slogx.FromContext(ctx).Info("user logged in", slog.String("user_id", user.ID))
	return raw, sess.ExpiresAt, nil
}

// Logout destroys the session named by token. Unknown or empty tokens are
// not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions().DeleteSession(ctx, cryptox.FingerprintToken(token))
}

// CurrentUser resolves a session token to its user. Sessions whose user
// has since been deleted are removed and read as unauthenticated.
func (s *SessionService) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrUnauthenticated
	}

	fingerprint := cryptox.FingerprintToken(token)
	sess, err := s.sessions().GetSession(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnauthenticated
		}
		return domain.User{}, err
	}
	if sess.IsExpired(s.now()) {
		return domain.User{}, ErrUnauthenticated
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.sessions().DeleteSession(ctx, fingerprint)
			return domain.User{}, ErrUnauthenticated
		}
		return domain.User{}, err
	}
	return user, nil
}

// RevokeUserSessions logs a user out everywhere.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) error {
	return s.sessions().DeleteUserSessions(ctx, userID)
}
