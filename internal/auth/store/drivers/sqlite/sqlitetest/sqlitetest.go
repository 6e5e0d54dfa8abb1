// Package sqlitetest opens a migrated, file-backed sqlite store for tests.
package sqlitetest

import (
	"path/filepath"
	"testing"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

// New returns a fresh store in t's temp dir. A file is used rather than
// ":memory:" so every pooled connection sees the same database.
func New(t testing.TB) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "dashboard.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}
