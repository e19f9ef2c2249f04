// Package db provides SQLite database initialization and access.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Database drivers understood by OpenDriver.
const (
	DriverCGO    = "sqlite3" // mattn/go-sqlite3
	DriverPure   = "sqlite"  // modernc.org/sqlite
	DriverLibSQL = "libsql"  // remote libsql / Turso
)

// DefaultPath returns the default database path: ~/.visit-hub/visits.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".visit-hub", "visits.db"), nil
}

// Open opens (or creates) a SQLite database at the given path with the cgo driver.
func Open(path string) (*sql.DB, error) {
	return OpenDriver(DriverCGO, path)
}

// OpenDriver opens a database with the named driver, enables WAL mode and
// foreign keys for local files, and runs migrations. Remote libsql URLs
// select the libsql driver regardless of the driver argument.
func OpenDriver(driver, dsn string) (*sql.DB, error) {
	if isRemote(dsn) {
		driver = DriverLibSQL
	}
	if driver == "" {
		driver = DriverCGO
	}

	switch driver {
	case DriverCGO, DriverPure:
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	case DriverLibSQL:
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver != DriverLibSQL {
		if err := configure(db); err != nil {
			closeErr := db.Close()
			if closeErr != nil {
				return nil, fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
			}
			return nil, err
		}
	}

	if err := migrate(db); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (also failed to close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// configure sets SQLite pragmas for WAL mode and foreign keys.
func configure(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}

	return nil
}

func isRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "wss://", "https://", "http://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}
