package store

import (
	"context"
	"time"
)

// PresenceRecord is the durable view of a user's presence. The relay only
// ever writes it; readers are external (REST API, admin tooling).
type PresenceRecord struct {
	UserID    string
	Status    string
	LastSeen  time.Time
	SessionID string // bound session at write time, empty when offline
}

// Store is the durable presence collaborator.
type Store interface {
	// SetStatus upserts the presence record for a user. Best-effort from
	// the caller's point of view; errors are logged, never retried.
	SetStatus(ctx context.Context, userID, status string, lastSeen time.Time, sessionID string) error

	// GetPresence returns the stored record, or nil when the user has
	// never been seen.
	GetPresence(ctx context.Context, userID string) (*PresenceRecord, error)

	// Close releases the underlying resources.
	Close() error
}
