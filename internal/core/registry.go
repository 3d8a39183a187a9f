package core

import "sync"

// Registry tracks live sessions and the identity-to-session binding.
// The hub goroutine is the only writer; the mutex exists because the
// HTTP status endpoint reads the registry from its own goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // session id -> session
	bindings map[string]*Session // user id -> currently bound session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		bindings: make(map[string]*Session),
	}
}

// Register adds a fresh, unauthenticated session.
func (r *Registry) Register(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
}

// Bind associates a user identity with a session. A newer session for the
// same identity replaces the prior binding (last connection wins); the old
// transport is left alone and simply stops receiving addressed signals.
// Returns false when userID is empty.
func (r *Registry) Bind(sess *Session, userID string) bool {
	if userID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A session re-authenticating under a different identity must not
	// leave its old binding behind.
	if sess.UserID != "" && sess.UserID != userID {
		if bound, ok := r.bindings[sess.UserID]; ok && bound == sess {
			delete(r.bindings, sess.UserID)
		}
	}

	sess.UserID = userID
	r.bindings[userID] = sess
	return true
}

// Resolve returns the session currently bound to userID, or nil when the
// user has no live session. A nil result means "user offline" to callers,
// a recoverable condition they surface to the client.
func (r *Registry) Resolve(userID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[userID]
}

// Unregister removes the session and, when it is still the bound session
// for its user, the binding as well. A binding already replaced by a newer
// session is left untouched, so a disconnect racing a reconnect never
// evicts the fresh session. Returns true when the binding was dropped,
// meaning the user has no live session left.
func (r *Registry) Unregister(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sess.ID)

	if sess.UserID == "" {
		return false
	}
	if bound, ok := r.bindings[sess.UserID]; ok && bound == sess {
		delete(r.bindings, sess.UserID)
		return true
	}
	return false
}

// Has reports whether the session is still registered. The hub uses this
// to drop commands that were in flight when their session disconnected.
func (r *Registry) Has(sess *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sess.ID] == sess
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// BoundUsers returns the identities that currently have a bound session.
func (r *Registry) BoundUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.bindings))
	for userID := range r.bindings {
		users = append(users, userID)
	}
	return users
}

// Each calls fn for every live session. Used for server-wide broadcasts.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.sessions {
		fn(sess)
	}
}
