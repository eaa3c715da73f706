package reportviewer

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func migrationDir(driver string) (dir, dialect string, err error) {
	switch driver {
	case DriverSQLite:
		return path.Join("migrations", "sqlite"), "sqlite3", nil
	case DriverPostgres:
		return path.Join("migrations", "postgres"), "postgres", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Migrate applies every pending schema migration
func Migrate(ctx context.Context, log logrus.FieldLogger, db *sql.DB, driver string) error {
	dir, dialect, err := migrationDir(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(log.WithField("component", "migrations"))

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrationVersion returns the current schema version
func MigrationVersion(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	_, dialect, err := migrationDir(driver)
	if err != nil {
		return 0, err
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}

	return goose.GetDBVersionContext(ctx, db)
}
