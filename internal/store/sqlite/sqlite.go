package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beaconchat/beacon-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS presence (
	user_id    TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	last_seen  DATETIME NOT NULL,
	session_id TEXT NOT NULL DEFAULT ''
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetStatus upserts the presence record for a user.
func (s *SQLiteStore) SetStatus(ctx context.Context, userID, status string, lastSeen time.Time, sessionID string) error {
	query := `
		INSERT INTO presence (user_id, status, last_seen, session_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			status     = excluded.status,
			last_seen  = excluded.last_seen,
			session_id = excluded.session_id
	`
	if _, err := s.db.ExecContext(ctx, query, userID, status, lastSeen.UTC(), sessionID); err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// GetPresence returns the stored record, or nil when the user is unknown.
func (s *SQLiteStore) GetPresence(ctx context.Context, userID string) (*store.PresenceRecord, error) {
	query := `
		SELECT user_id, status, last_seen, session_id
		FROM presence
		WHERE user_id = ?
	`
	var rec store.PresenceRecord
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.Status, &rec.LastSeen, &rec.SessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select presence: %w", err)
	}
	return &rec, nil
}
