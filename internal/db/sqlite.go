package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	db   *sql.DB
	once sync.Once
)

// InitDB initializes the SQLite database connection and runs schema migrations.
func InitDB(dbPath string) (*sql.DB, error) {
	var initErr error
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite3", dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		// Enable WAL mode for better concurrent access
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			initErr = fmt.Errorf("failed to enable WAL mode: %w", err)
			return
		}

		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			initErr = fmt.Errorf("failed to enable foreign keys: %w", err)
			return
		}

		// Run schema migrations
		if err := runMigrations(db); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	if initErr != nil {
		return nil, initErr
	}
	return db, nil
}

// GetDB returns the initialized database connection.
func GetDB() *sql.DB {
	return db
}

// runMigrations executes the database schema migrations.
func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS connections (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id      TEXT     NOT NULL UNIQUE,
		agent           TEXT     NOT NULL,
		metadata        TEXT     NOT NULL DEFAULT '{}',
		connected_at    DATETIME NOT NULL,
		last_heartbeat  DATETIME NOT NULL,
		status          TEXT     NOT NULL DEFAULT 'active',
		message_count   INTEGER  NOT NULL DEFAULT 0,
		disconnected_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id   TEXT     NOT NULL UNIQUE,
		msg_type     TEXT     NOT NULL DEFAULT 'data',
		sender_id    TEXT,
		recipient_id TEXT     NOT NULL,
		content      TEXT     NOT NULL,
		sent_at      DATETIME NOT NULL,
		delivered    INTEGER  NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS heartbeat_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT     NOT NULL,
		ts         DATETIME NOT NULL,
		latency_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_conn_agent  ON connections(agent);
	CREATE INDEX IF NOT EXISTS idx_conn_status ON connections(status);
	CREATE INDEX IF NOT EXISTS idx_msg_recip   ON messages(recipient_id);
	CREATE INDEX IF NOT EXISTS idx_msg_sent    ON messages(sent_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// CloseDB closes the database connection.
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// ResetDB resets the singleton for testing purposes.
func ResetDB() {
	if db != nil {
		db.Close()
	}
	once = sync.Once{}
	db = nil
}

// NewTestDB creates a new in-memory database for testing.
// This bypasses the singleton pattern and creates a fresh database each time.
func NewTestDB() (*sql.DB, error) {
	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	// Every pooled connection to ":memory:" gets its own database, so the
	// pool must stay at a single connection.
	testDB.SetMaxOpenConns(1)

	// Run schema migrations
	if err := runMigrations(testDB); err != nil {
		testDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return testDB, nil
}
