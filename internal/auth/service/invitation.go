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

// The invitation failure taxonomy. Error() is the code surfaced to
// clients verbatim.
var (
	ErrInvitationNotFound        = errors.New("NotFound")
	ErrInvitationAlreadyAccepted = errors.New("AlreadyAccepted")
	ErrInvitationExpired         = errors.New("Expired")

	ErrUsernameTaken = errors.New("username already taken")
)

// IsInvitationError reports whether err belongs to the invitation taxonomy.
func IsInvitationError(err error) bool {
	return errors.Is(err, ErrInvitationNotFound) ||
		errors.Is(err, ErrInvitationAlreadyAccepted) ||
		errors.Is(err, ErrInvitationExpired)
}

// Mailer delivers invitation emails. Delivery is best effort.
type Mailer interface {
	IsConfigured() bool
	SendInvitation(ctx context.Context, email, token, inviterName string) bool
}

type InvitationService struct {
	Store  store.Store
	Mailer Mailer // optional
	Now    func() time.Time
}

func (s *InvitationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create stores a pending invitation and returns it together with the raw
// token. Only the token's fingerprint is persisted.
func (s *InvitationService) Create(
	ctx context.Context,
	email string,
	invitedBy string,
	role domain.Role,
) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	email, err := NormalizeEmail(email)
	if err != nil {
		return domain.Invitation{}, "", err
	}
	if role == "" {
		role = domain.RoleUser
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return domain.Invitation{}, "", err
	}

	// 2. Duplicates are allowed but worth a log line
	if existing, err := s.Store.Invitations().ListInvitationsByEmail(ctx, email); err == nil {
		now := s.now()
		for _, inv := range existing {
			if !inv.IsAccepted() && !inv.IsExpired(now) {
				log.Warn("creating duplicate pending invitation",
					slog.String("existing_invitation_id", inv.ID),
				)
				break
			}
		}
	}

	// 3. Generate the token; 256 bits of entropy
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	now := s.now()
	inv := domain.Invitation{
		ID:        idx.NewAt(now).String(),
		Email:     email,
		TokenHash: cryptox.FingerprintToken(token),
		Role:      role,
		InvitedBy: invitedBy,
		Status:    domain.InvitationPending,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	}

	// 4. Persist
	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, "", err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("role", string(role)),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return inv, token, nil
}

// InviteResult is what the admin sees after inviting someone.
type InviteResult struct {
	Invitation domain.Invitation
	Token      string
	EmailSent  bool
}

// Invite creates an invitation and tries to email it. A failed email does
// not undo the invitation; the caller can share the link by hand.
func (s *InvitationService) Invite(
	ctx context.Context,
	email string,
	role domain.Role,
	inviter domain.User,
) (InviteResult, error) {
	inv, token, err := s.Create(ctx, email, inviter.ID, role)
	if err != nil {
		return InviteResult{}, err
	}

	res := InviteResult{Invitation: inv, Token: token}
	if s.Mailer != nil && s.Mailer.IsConfigured() {
		name := inviter.DisplayName
		if name == "" {
			name = inviter.Username
		}
		res.EmailSent = s.Mailer.SendInvitation(ctx, inv.Email, token, name)
	}
	return res, nil
}

// Validate reports whether token can still be redeemed. Status and expiry
// are checked independently; an accepted invitation is never valid.
func (s *InvitationService) Validate(ctx context.Context, token string) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvitationNotFound
	}

	inv, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, err
	}
	if err := classify(inv, s.now()); err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

func classify(inv domain.Invitation, now time.Time) error {
	if inv.IsAccepted() {
		return ErrInvitationAlreadyAccepted
	}
	if inv.IsExpired(now) {
		return ErrInvitationExpired
	}
	return nil
}

// Accept atomically moves a pending, unexpired invitation to accepted.
func (s *InvitationService) Accept(ctx context.Context, token string) (domain.Invitation, error) {
	return s.accept(ctx, s.Store, token, "")
}

// accept runs the conditional transition on st (a Store or a Tx). When the
// transition does not happen the invitation is re-read to say why.
func (s *InvitationService) accept(
	ctx context.Context,
	st store.Store,
	token string,
	acceptedBy string,
) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvitationNotFound
	}

	hash := cryptox.FingerprintToken(token)
	now := s.now()

	inv, err := st.Invitations().AcceptInvitation(ctx, hash, now, acceptedBy)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return domain.Invitation{}, err
	}

	cur, err := st.Invitations().GetInvitationByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, ErrInvitationNotFound
		}
		return domain.Invitation{}, err
	}
	if err := classify(cur, now); err != nil {
		return domain.Invitation{}, err
	}
	// Not accepted and not expired, yet the update lost: a concurrent
	// accept committed between the two statements.
	return domain.Invitation{}, ErrInvitationAlreadyAccepted
}

// Revoke deletes an invitation in any status.
func (s *InvitationService) Revoke(ctx context.Context, id string) error {
	err := s.Store.Invitations().DeleteInvitation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvitationNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("invitation revoked", slog.String("invitation_id", id))
	return nil
}

// List returns every invitation, newest first.
func (s *InvitationService) List(ctx context.Context) ([]domain.Invitation, error) {
	return s.Store.Invitations().ListInvitations(ctx)
}

// Register creates an account from an invitation. The user insert and the
// conditional accept share one transaction, so one token yields at most
// one account and a failure of either step leaves nothing behind.
func (s *InvitationService) Register(
	ctx context.Context,
	token string,
	username string,
	password string,
	displayName string,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input before touching the store
	if err := ValidateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.User{}, err
	}

	// 2. Fail fast on a dead token so we skip the bcrypt cost
	inv, err := s.Validate(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	// 3. Hash the password
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	if displayName == "" {
		displayName = username
	}
	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         inv.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4. Create the user, then accept the invitation, atomically
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUsernameTaken
			}
			return err
		}
		accepted, err := s.accept(ctx, tx, token, user.ID)
		if err != nil {
			return err
		}
		inv = accepted
		return nil
	})
	if err != nil {
		if !IsInvitationError(err) && !errors.Is(err, ErrUsernameTaken) {
			log.Error("registration failed", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	log.Info("user registered via invitation",
		slog.String("user_id", user.ID),
		slog.String("invitation_id", inv.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}
