package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer: AI settings, agent
// configurations, queue rows, notifications, and the cached model list.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath and runs the schema
// migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_apps (
			app_id            INTEGER PRIMARY KEY,
			name              TEXT NOT NULL DEFAULT '',
			model             TEXT,
			prompt            TEXT NOT NULL,
			tool_notification INTEGER DEFAULT 0,
			tool_website_scrape INTEGER DEFAULT 0,
			tool_run_command  INTEGER DEFAULT 0,
			website_url       TEXT,
			scrape_format     TEXT DEFAULT 'text',
			scrape_delivery   TEXT DEFAULT 'both',
			command_delivery  TEXT DEFAULT 'tool',
			command           TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ai_queue (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			status       TEXT NOT NULL,
			message      TEXT NOT NULL,
			response     TEXT,
			created_at   INTEGER NOT NULL,
			started_at   INTEGER,
			completed_at INTEGER,
			agent_name   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			dismissed  INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ai_models (
			id      TEXT PRIMARY KEY,
			created INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
