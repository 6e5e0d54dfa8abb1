package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
)

type invitationsRepo struct {
	q querier
}

const invitationColumns = `id, email, token_hash, role, invited_by, status, created_at, expires_at, accepted_at, accepted_by`

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var (
		inv              domain.Invitation
		role, status     string
		invitedBy, accBy sql.NullString
		created, expires int64
		acceptedAt       sql.NullInt64
	)
	err := row.Scan(&inv.ID, &inv.Email, &inv.TokenHash, &role, &invitedBy, &status,
		&created, &expires, &acceptedAt, &accBy)
	if err != nil {
		return domain.Invitation{}, err
	}
	inv.Role = domain.Role(role)
	inv.Status = domain.InvitationStatus(status)
	inv.InvitedBy = mapNullString(invitedBy)
	inv.AcceptedBy = mapNullString(accBy)
	inv.CreatedAt = fromMillis(created)
	inv.ExpiresAt = fromMillis(expires)
	inv.AcceptedAt = mapNullMillisPtr(acceptedAt)
	return inv, nil
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	if inv.Status == "" {
		inv.Status = domain.InvitationPending
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.TokenHash, string(inv.Role), mapStringNull(inv.InvitedBy),
		string(inv.Status), toMillis(inv.CreatedAt), toMillis(inv.ExpiresAt),
		mapOptionalMillis(inv.AcceptedAt), mapStringNull(inv.AcceptedBy),
	)
	return mapWriteErr(err)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	inv, err := scanInvitation(r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash))
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	inv, err := scanInvitation(r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	return r.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC, id DESC`)
}

func (r *invitationsRepo) ListInvitationsByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	return r.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE email = ? ORDER BY created_at DESC, id DESC`,
		email)
}

func (r *invitationsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
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
	inv, err := scanInvitation(r.q.QueryRowContext(ctx, `
		UPDATE invitations
		SET status = 'accepted', accepted_at = ?, accepted_by = ?
		WHERE token_hash = ? AND status = 'pending' AND expires_at > ?
		RETURNING `+invitationColumns,
		toMillis(acceptedAt), mapStringNull(acceptedBy), hash, toMillis(acceptedAt),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Invitation{}, store.ErrConflict
	}
	if err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

func (r *invitationsRepo) DeleteInvitation(ctx context.Context, id string) error {
	return expectOne(r.q.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id))
}
