package postgres

import (
	"context"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
)

type sessionsRepo struct {
	q querier
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	const q = `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, q, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	return mapWriteErr(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, idHash string) (domain.Session, error) {
	const q = `SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1 AND expires_at > now()`
	var s domain.Session
	if err := r.q.QueryRow(ctx, q, idHash).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, idHash string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := r.q.Exec(ctx, q, idHash)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) error {
	const q = `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.q.Exec(ctx, q, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	const q = `DELETE FROM sessions WHERE expires_at <= now()`
	_, err := r.q.Exec(ctx, q)
	return err
}
