package sqlite

import (
	"context"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
)

type sessionsRepo struct {
	q querier
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, toMillis(s.CreatedAt), toMillis(s.ExpiresAt),
	)
	return mapWriteErr(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, idHash string) (domain.Session, error) {
	var (
		s                domain.Session
		created, expires int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`,
		idHash, toMillis(time.Now()),
	).Scan(&s.ID, &s.UserID, &created, &expires)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.CreatedAt = fromMillis(created)
	s.ExpiresAt = fromMillis(expires)
	return s, nil
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, idHash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, idHash)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(time.Now()))
	return err
}
