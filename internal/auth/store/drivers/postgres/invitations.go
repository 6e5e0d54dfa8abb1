package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

type invitationsRepo struct {
	q querier
}

const invitationColumns = `id, email, token_hash, role, invited_by, status, created_at, expires_at, accepted_at, accepted_by`

func scanInvitation(row pgx.Row) (domain.Invitation, error) {
	var (
		inv              domain.Invitation
		role, status     string
		invitedBy, accBy *string
	)
	err := row.Scan(&inv.ID, &inv.Email, &inv.TokenHash, &role, &invitedBy, &status,
		&inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt, &accBy)
	if err != nil {
		return domain.Invitation{}, err
	}
	inv.Role = domain.Role(role)
	inv.Status = domain.InvitationStatus(status)
	inv.InvitedBy = deref(invitedBy)
	inv.AcceptedBy = deref(accBy)
	return inv, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	const q = `
INSERT INTO invitations (` + invitationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if inv.Status == "" {
		inv.Status = domain.InvitationPending
	}
	_, err := r.q.Exec(ctx, q,
		inv.ID, inv.Email, inv.TokenHash, string(inv.Role), nullable(inv.InvitedBy),
		string(inv.Status), inv.CreatedAt, inv.ExpiresAt, inv.AcceptedAt, nullable(inv.AcceptedBy),
	)
	return mapWriteErr(err)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE token_hash = $1`
	inv, err := scanInvitation(r.q.QueryRow(ctx, q, hash))
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q)
}

func (r *invitationsRepo) ListInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	const q = `SELECT ` + invitationColumns + ` FROM invitations WHERE email = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, email)
}

func (r *invitationsRepo) list(ctx context.Context, q string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitationsRepo) AcceptInvitation(
	ctx context.Context,
	hash string,
	acceptedAt time.Time,
	acceptedBy string,
) (domain.Invitation, error) {
	const q = `
UPDATE invitations
SET status = 'accepted', accepted_at = $2, accepted_by = $3
WHERE token_hash = $1 AND status = 'pending' AND expires_at > $2
RETURNING ` + invitationColumns
	inv, err := scanInvitation(r.q.QueryRow(ctx, q, hash, acceptedAt, nullable(acceptedBy)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invitation{}, store.ErrConflict
	}
	if err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

func (r *invitationsRepo) DeleteInvitation(ctx context.Context, id string) error {
	const q = `DELETE FROM invitations WHERE id = $1`
	return expectOne(r.q.Exec(ctx, q, id))
}
