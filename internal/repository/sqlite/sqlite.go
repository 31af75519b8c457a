// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of SQLite — no CGo, no C
// compiler, cross-compiles anywhere Go does. The driver registers itself
// with database/sql under the name "sqlite" via the blank import below.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps the sql.DB pool and implements repository.UserRepository and
// repository.PostRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests), applies
// pragmas, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; with a pool of more
	// than one, the second connection would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight — important
	// under concurrent HTTP requests.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity is opt-in in SQLite. Votes and posts carry
	// foreign keys, so turn it on.
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

// Close closes the connection pool (flushes the WAL, releases the file lock).
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent; a real deployment would graduate to versioned migrations.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			username   TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			text       TEXT NOT NULL DEFAULT '',
			points     INTEGER NOT NULL DEFAULT 0,
			creator_id INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_creator_id ON posts(creator_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS votes (
			user_id INTEGER NOT NULL REFERENCES users(id),
			post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			value   INTEGER NOT NULL,
			PRIMARY KEY (user_id, post_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating votes table: %w", err)
	}

	return nil
}
