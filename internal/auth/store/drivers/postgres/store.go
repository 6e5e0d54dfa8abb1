package postgres

import (
	"context"
	"errors"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

type Store struct {
	pool PgxPool
	dsn  string
}

// NewStore connects to dsn. The dsn is kept for migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, dsn: dsn}, nil
}

// NewStoreWithPool wraps an existing pool. dsn may be empty when
// ApplyMigrations will not be called.
func NewStoreWithPool(pool PgxPool, dsn string) *Store {
	return &Store{pool: pool, dsn: dsn}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Tx starts a read committed transaction. The conditional statements the
// repositories issue are safe under read committed: a blocked UPDATE
// re-checks its WHERE clause after the competing transaction commits.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &txStore{ctx: ctx, tx: tx}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users             { return &usersRepo{q: s.pool} }
func (s *Store) Invitations() store.Invitations { return &invitationsRepo{q: s.pool} }
func (s *Store) OAuthTokens() store.OAuthTokens { return &oauthTokensRepo{q: s.pool} }
func (s *Store) Sessions() store.Sessions       { return &sessionsRepo{q: s.pool} }

type txStore struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *txStore) Commit() error { return t.tx.Commit(t.ctx) }

// Rollback after Commit is a no-op.
func (t *txStore) Rollback() error {
	err := t.tx.Rollback(t.ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, store.ErrNestedTx
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.ErrNestedTx
}

func (t *txStore) Users() store.Users             { return &usersRepo{q: t.tx} }
func (t *txStore) Invitations() store.Invitations { return &invitationsRepo{q: t.tx} }
func (t *txStore) OAuthTokens() store.OAuthTokens { return &oauthTokensRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{q: t.tx} }

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
