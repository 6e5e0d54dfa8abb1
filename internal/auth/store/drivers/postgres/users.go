package postgres

import (
	"context"
	"time"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/domain"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, display_name, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = domain.Role(role)
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(r.q.QueryRow(ctx, q, username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	const q = `
INSERT INTO users (id, username, display_name, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.q.Exec(ctx, q, u.ID, u.Username, u.DisplayName, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	return mapWriteErr(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	const q = `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`
	return expectOne(r.q.Exec(ctx, q, userID, string(role)))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	return expectOne(r.q.Exec(ctx, q, userID, newHash))
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM users WHERE id = $1`
	return expectOne(r.q.Exec(ctx, q, userID))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users)`
	var exists bool
	if err := r.q.QueryRow(ctx, q).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
