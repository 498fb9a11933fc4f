// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// builds without CGo. The schema lives in migrations/ and is applied with
// golang-migrate on startup (and by `videohub migrate`).
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      a connection pool (NOT a single connection!)
//   - sql.Tx      a transaction
//   - sql.Row     a single result row
//   - sql.Rows    multiple result rows (must be closed!)
//
// The pool is capped at one connection. SQLite serializes writers anyway,
// PRAGMAs are per-connection, and ":memory:" databases exist only inside
// the connection that created them. With one connection, code in this
// package must never issue a query while a *sql.Rows is still open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps a sql.DB connection pool and hands out one store per aggregate.
type DB struct {
	conn *sql.DB
}

// Open connects to the database at dbPath without touching the schema.
//
// dbPath examples:
//   - "data/videohub.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite; role assignments rely on ON DELETE CASCADE.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// New opens the database and applies every pending migration.
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. It backs /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the user store.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Accounts returns the account store.
func (db *DB) Accounts() *AccountStore { return &AccountStore{conn: db.conn} }

// Roles returns the role assignment store.
func (db *DB) Roles() *RoleStore { return &RoleStore{conn: db.conn} }

// Videos returns the video store.
func (db *DB) Videos() *VideoStore { return &VideoStore{conn: db.conn} }

// MigrateUp applies all pending migrations. ErrNoChange is not an error.
func (db *DB) MigrateUp() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back every migration.
func (db *DB) MigrateDown() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate down: %w", err)
	}
	return nil
}

// migrator builds a golang-migrate instance over the embedded SQL files.
// The returned value is never closed: Migrate.Close would close db.conn,
// which the DB still owns.
func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db.conn, &sqlitemigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrator: %w", err)
	}
	return m, nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. The driver reports extended result codes.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// nullString maps "" to NULL so optional columns stay NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
