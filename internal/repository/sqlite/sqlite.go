// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database that lives inside the Go binary as a single file.
// No separate database server to install or manage. It is the default backend
// for development, tests (":memory:") and single-server deployments; the
// postgres package covers the rest.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   a connection pool (NOT a single connection!)
//   - sql.Tx   a transaction, pinned to one connection
//   - sql.Rows multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sakif/buddy-system/internal/repository"
)

// DB wraps a sql.DB connection pool and hands out the per-entity repositories.
type DB struct {
	conn *sql.DB
}

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/buddy.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests; lost on close)
//
// SINGLE CONNECTION:
// The pool is capped at one connection. Every ":memory:" connection is its own
// empty database, so a second pooled connection would not see our tables.
// SQLite also allows only one writer at a time; one connection turns "database
// is locked" errors into ordinary queueing inside database/sql.
// The cost: code holding a *sql.Tx must not touch db.conn until the tx ends,
// or it waits for itself forever. Every repository method below uses either
// the pool or the tx, never both.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows readers to proceed while a write is happening
	// (for other processes opening the same file).
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable (used by GET /health).
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Animals() repository.AnimalRepository { return &AnimalDB{conn: db.conn} }
func (db *DB) Users() repository.UserRepository     { return &UserDB{conn: db.conn} }
func (db *DB) Fosters() repository.FosterRepository { return &FosterDB{conn: db.conn} }

// migrate creates the schema. Every statement is idempotent, so it runs on
// every start.
//
// Dates are TEXT in "YYYY-MM-DD" form; lexical order equals date order.
// Lists order by rowid, which only grows while rows exist. xid ids are not
// used for ordering: their counter wraps, so two ids from one second can
// sort against creation order.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS animals (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			age           INTEGER NOT NULL CHECK (age >= 0),
			kind          TEXT NOT NULL,
			fixed         INTEGER NOT NULL DEFAULT 0,
			vaccinated    INTEGER NOT NULL DEFAULT 0,
			intake_date   TEXT NOT NULL,
			adopter_id    TEXT REFERENCES users(id),
			adoption_date TEXT,
			CHECK ((adopter_id IS NULL) = (adoption_date IS NULL))
		);
		CREATE INDEX IF NOT EXISTS idx_animals_adopter_id ON animals(adopter_id);
	`)
	if err != nil {
		return fmt.Errorf("creating animals table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS fosters (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			animal_id  TEXT NOT NULL REFERENCES animals(id) ON DELETE CASCADE,
			start_date TEXT NOT NULL,
			end_date   TEXT NOT NULL,
			PRIMARY KEY (user_id, animal_id),
			CHECK (end_date >= start_date)
		);
		CREATE INDEX IF NOT EXISTS idx_fosters_animal_id ON fosters(animal_id);
	`)
	if err != nil {
		return fmt.Errorf("creating fosters table: %w", err)
	}

	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the scan helpers need.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise. fn must use tx exclusively (see New).
func withTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning sql.ErrTxDone.
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// exists reports whether a row with the given id exists in table.
// table is always one of our constants, never user input.
func exists(ctx context.Context, q querier, table, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s %s: %w", table, id, err)
	}
	return true, nil
}
