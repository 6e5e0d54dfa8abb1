package store

import (
	"context"
	"errors"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional writes whose precondition no
	// longer holds (invitation already accepted or expired, token version
	// moved on).
	ErrConflict = errors.New("store: conflict")

	// ErrNestedTx is returned when Tx or WithTx is called on a Tx.
	ErrNestedTx = errors.New("store: nested transactions are not supported")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped store cannot start a nested transaction.
type Store interface {
	Users() Users
	Invitations() Invitations
	OAuthTokens() OAuthTokens
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is an exact, case-sensitive match.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. A taken username yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns every user, oldest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateRole sets the role and bumps updated_at. ErrNotFound for unknown ids.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdatePasswordHash sets the bcrypt hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser cascades to oauth_tokens and sessions (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Invitations interface {
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByTokenHash returns the invitation regardless of status or
	// expiry; callers classify it.
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// ListInvitations returns all invitations, newest first.
	ListInvitations(ctx context.Context) ([]domain.Invitation, error)

	// ListInvitationsByEmail returns invitations addressed to email, newest first.
	ListInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error)

	// AcceptInvitation flips a pending, unexpired invitation to accepted in a
	// single conditional statement. When no row satisfies the condition it
	// returns ErrConflict and changes nothing.
	AcceptInvitation(ctx context.Context, hash string, acceptedAt time.Time, acceptedBy string) (domain.Invitation, error)

	// DeleteInvitation removes an invitation in any status.
	DeleteInvitation(ctx context.Context, id string) error
}

type OAuthTokens interface {
	// GetOAuthToken returns the single token record of a user.
	GetOAuthToken(ctx context.Context, userID string) (domain.OAuthToken, error)

	// UpsertOAuthToken inserts or replaces the user's record (connect flow).
	// The stored version is bumped on replace. Zero timestamps on t default
	// to now; created_at is kept on replace.
	UpsertOAuthToken(ctx context.Context, t domain.OAuthToken) error

	// UpdateOAuthTokenIfVersion writes access, refresh, expiry, scope and
	// t.UpdatedAt only when the stored version still equals expectedVersion.
	// A lost race returns ErrConflict.
	UpdateOAuthTokenIfVersion(ctx context.Context, t domain.OAuthToken, expectedVersion int64) error

	// DeleteOAuthToken is idempotent.
	DeleteOAuthToken(ctx context.Context, userID string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSession returns an unexpired session by its fingerprint. Expired
	// sessions read as ErrNotFound.
	GetSession(ctx context.Context, idHash string) (domain.Session, error)

	// DeleteSession is idempotent.
	DeleteSession(ctx context.Context, idHash string) error

	// DeleteUserSessions revokes every session of a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}
