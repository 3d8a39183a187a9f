package core

import "encoding/json"

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventAuthenticated confirms a successful authenticate to the session.
	EventAuthenticated EventKind = iota
	// EventAuthError rejects an authenticate attempt.
	EventAuthError
	// EventCallSignal delivers call-negotiation metadata to one session.
	EventCallSignal
	// EventCallSignalError tells the caller their target is unreachable.
	EventCallSignalError
	// EventTyping notifies a conversation that a user started or stopped typing.
	EventTyping
	// EventMessageDelivered notifies a conversation of a delivery receipt.
	EventMessageDelivered
	// EventMessageRead notifies a conversation of a read receipt.
	EventMessageRead
	// EventUserStatusChanged announces a presence transition to other sessions.
	EventUserStatusChanged
	// EventError notifies a session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
// Which fields are set depends on Kind.
type Event struct {
	Kind         EventKind
	User         string          // acting user's identity
	Conversation string          // conversation-scoped events
	MessageID    string          // delivery/read receipts
	IsTyping     bool            // typing events
	Status       Status          // status-changed events
	Signal       json.RawMessage // opaque call-negotiation payload
	TS           int64           // unix seconds
	Error        *CoreError
}
