package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/store"
)

// txStore scopes every repository to one *sql.Tx. Lifecycle methods that
// belong to the outer Store are inert here.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore { return &txStore{tx: tx} }

func (t *txStore) Users() store.Users             { return &usersRepo{q: t.tx} }
func (t *txStore) Invitations() store.Invitations { return &invitationsRepo{q: t.tx} }
func (t *txStore) OAuthTokens() store.OAuthTokens { return &oauthTokensRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{q: t.tx} }

func (t *txStore) Commit() error { return t.tx.Commit() }

// Rollback after Commit is a no-op.
func (t *txStore) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return store.ErrNestedTx }

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
