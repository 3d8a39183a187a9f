package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Status is a user's advisory presence state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// valid reports whether a client may request this status explicitly.
// Offline is only ever derived from a disconnect.
func (s Status) valid() bool {
	return s == StatusOnline || s == StatusAway
}

// PresenceStore is the durable collaborator that presence transitions are
// pushed to. The core only ever writes; it never reads presence back.
type PresenceStore interface {
	SetStatus(ctx context.Context, userID, status string, lastSeen time.Time, sessionID string) error
}

const (
	persistTimeout   = 5 * time.Second
	persistQueueSize = 256
)

// PresenceManager drives online/away/offline transitions. Persistence is
// asynchronous and best-effort: writes go through a single ordered queue
// drained by one worker goroutine, so a transition decided later can never
// be overtaken by an earlier in-flight write (a reconnect always beats a
// stale offline). A failed or dropped write is logged and the in-memory
// view stays authoritative. A nil store disables persistence entirely.
type PresenceManager struct {
	store PresenceStore
	log   *zerolog.Logger
	queue chan presenceUpdate
}

type presenceUpdate struct {
	userID    string
	status    Status
	sessionID string
	lastSeen  time.Time
}

// NewPresenceManager constructs a presence manager over the given store.
func NewPresenceManager(store PresenceStore, logger *zerolog.Logger) *PresenceManager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	p := &PresenceManager{
		store: store,
		log:   logger,
		queue: make(chan presenceUpdate, persistQueueSize),
	}
	if store != nil {
		go p.flush()
	}
	return p
}

// SetOnline records a user coming online on the given session.
func (p *PresenceManager) SetOnline(userID, sessionID string) {
	p.persist(userID, StatusOnline, sessionID)
}

// SetStatus records an explicit status change requested by the user.
func (p *PresenceManager) SetStatus(userID, sessionID string, status Status) {
	p.persist(userID, status, sessionID)
}

// SetOffline records a user going offline. The caller must already have
// checked that the departing session was still the bound one, so an
// in-flight offline write can never clobber a newer authenticate; the
// bound-session reference is cleared on the record.
func (p *PresenceManager) SetOffline(userID string) {
	p.persist(userID, StatusOffline, "")
}

func (p *PresenceManager) persist(userID string, status Status, sessionID string) {
	if p.store == nil {
		return
	}

	upd := presenceUpdate{
		userID:    userID,
		status:    status,
		sessionID: sessionID,
		lastSeen:  time.Now(),
	}
	select {
	case p.queue <- upd:
	default:
		// Queue full: drop rather than stall the hub loop.
		p.log.Warn().
			Str("user_id", userID).
			Str("status", string(status)).
			Msg("presence write queue full, dropping update")
	}
}

// flush drains the write queue one update at a time, preserving the order
// transitions were decided in.
func (p *PresenceManager) flush() {
	for upd := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := p.store.SetStatus(ctx, upd.userID, string(upd.status), upd.lastSeen, upd.sessionID)
		cancel()
		if err != nil {
			p.log.Warn().
				Err(err).
				Str("user_id", upd.userID).
				Str("status", string(upd.status)).
				Msg("failed to persist presence")
		}
	}
}
