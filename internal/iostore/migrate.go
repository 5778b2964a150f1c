package iostore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/stimstrain/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationStatus describes the schema version of a store.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Latest  uint
}

// migrationSource returns the embedded migrations of a backend dialect.
func migrationSource(backend schema.DatabaseBackend) (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	return sub, nil
}

// migrationDriver wraps db for golang-migrate. The MySQL and PostgreSQL drivers pin a
// dedicated connection so that closing them leaves db open; the SQLite driver uses db directly.
func migrationDriver(ctx context.Context, db *sql.DB, backend schema.DatabaseBackend) (database.Driver, error) {
	switch backend {
	case schema.SQLiteBackend:
		return migratesqlite.WithInstance(db, &migratesqlite.Config{})

	case schema.MySQLBackend:
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		driver, err := migratemysql.WithConnection(ctx, conn, &migratemysql.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return driver, nil

	case schema.PostgreSQLBackend:
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		driver, err := migratepgx.WithConnection(ctx, conn, &migratepgx.Config{})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return driver, nil

	default:
		return nil, fmt.Errorf("migrations are not supported for %s", backend)
	}
}

// withMigrate runs fn against a migrate instance bound to db.
func withMigrate(db *sql.DB, backend schema.DatabaseBackend, fn func(*migrate.Migrate) error) error {
	ctx := context.Background()
	driver, err := migrationDriver(ctx, db, backend)
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	src, err := migrationSource(backend)
	if err != nil {
		return err
	}
	sourceDriver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "stimstrain", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Closing the SQLite driver would close db itself
	if backend != schema.SQLiteBackend {
		defer func() { _, _ = m.Close() }()
	}
	return fn(m)
}

// Migrate runs database migrations for the record store and reports progress to w.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(backend schema.DatabaseBackend, connStr string, targetVersion int, w io.Writer) error {
	if backend == schema.NoneBackend {
		return fmt.Errorf("migrations are not supported for NoneBackend")
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return migrateDB(db, backend, targetVersion, w)
}

// migrateDB applies migrations over an open connection.
func migrateDB(db *sql.DB, backend schema.DatabaseBackend, targetVersion int, w io.Writer) error {
	return withMigrate(db, backend, func(m *migrate.Migrate) error {
		currentVersion, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get current migration version: %w", err)
		}

		if dirty {
			return fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
		}

		switch {
		case targetVersion < 0:
			err = m.Up()
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate to latest version: %w", err)
			}
			if errors.Is(err, migrate.ErrNoChange) {
				_, _ = fmt.Fprintln(w, "No migration needed. Database is already at the latest version.")
			} else {
				newVersion, _, _ := m.Version()
				_, _ = fmt.Fprintf(w, "Successfully migrated from version %d to version %d\n", currentVersion, newVersion)
			}

		case targetVersion == 0:
			err = m.Down()
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to roll back to version 0: %w", err)
			}
			if errors.Is(err, migrate.ErrNoChange) {
				_, _ = fmt.Fprintln(w, "No migration needed. Database is already at version 0")
			} else {
				_, _ = fmt.Fprintf(w, "Successfully rolled back from version %d to version 0\n", currentVersion)
			}

		default:
			err = m.Migrate(uint(targetVersion))
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
			}
			if errors.Is(err, migrate.ErrNoChange) {
				_, _ = fmt.Fprintf(w, "No migration needed. Database is already at version %d\n", targetVersion)
			} else {
				_, _ = fmt.Fprintf(w, "Successfully migrated from version %d to version %d\n", currentVersion, targetVersion)
			}
		}
		return nil
	})
}

// GetMigrationStatus returns the applied and latest available schema versions.
func GetMigrationStatus(backend schema.DatabaseBackend, connStr string) (MigrationStatus, error) {
	var status MigrationStatus
	if backend == schema.NoneBackend {
		return status, fmt.Errorf("migrations are not supported for NoneBackend")
	}

	latest, err := LatestVersion(backend)
	if err != nil {
		return status, err
	}
	status.Latest = latest

	db, err := openDB(backend, connStr)
	if err != nil {
		return status, err
	}
	defer func() { _ = db.Close() }()

	err = withMigrate(db, backend, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get current migration version: %w", err)
		}
		status.Version = version
		status.Dirty = dirty
		return nil
	})
	return status, err
}

// LatestVersion returns the highest migration version embedded for backend.
func LatestVersion(backend schema.DatabaseBackend) (uint, error) {
	sub, err := migrationSource(backend)
	if err != nil {
		return 0, err
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations for %s: %w", backend, err)
	}
	defer func() { _ = src.Close() }()

	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations found for %s: %w", backend, err)
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			return version, nil
		}
		version = next
	}
}
