// Package sqlite implements the repository interfaces using SQLite as
// the storage backend.
//
// WHY SQLITE FOR A SINGLE CREDENTIAL?
// The credential must survive process restarts, and a real database
// buys us atomic replace semantics for free — no torn writes if the
// process dies mid-save, which a plain JSON file would need fsync
// choreography to guarantee. modernc.org/sqlite is a pure Go driver, so
// there is no CGo toolchain requirement and cross-compilation stays
// painless.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: the driver registers itself with database/sql under
	// the name "sqlite" in its init().
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the store methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs
// migrations. Use ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open only builds the pool — Ping forces a real connection so a
	// bad path surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL keeps readers unblocked during writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool. Defer it wherever New succeeds.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe
// to run on every startup.
//
// The credentials table has a fixed single-row primary key: the store
// holds at most one credential, and REPLACE INTO that key is our atomic
// "overwrite whatever was there" operation.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			id_token      TEXT NOT NULL DEFAULT '',
			token_type    TEXT NOT NULL DEFAULT '',
			expires_in    INTEGER NOT NULL DEFAULT 0,
			issued_at     TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}
	return nil
}
