package postgres

import (
	"errors"
	"strings"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/postgres/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

var ErrNoDSN = errors.New("postgres: migrations need a connection string")

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme the
// golang-migrate pgx/v5 driver registers under.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// ApplyMigrations applies the embedded schema over a dedicated connection.
func (s *Store) ApplyMigrations() error {
	if s.dsn == "" {
		return ErrNoDSN
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.dsn))
	if err != nil {
		return err
	}
	defer func() { _, _ = instance.Close() }()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
