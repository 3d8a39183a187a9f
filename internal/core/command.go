package core

import "encoding/json"

// CommandKind describes what the session wants to do.
type CommandKind int

const (
	// CommandAuthenticate binds a user identity to the session.
	CommandAuthenticate CommandKind = iota
	// CommandJoinConversation subscribes the session to a conversation room.
	CommandJoinConversation
	// CommandLeaveConversation unsubscribes the session from a conversation room.
	CommandLeaveConversation
	// CommandTyping broadcasts a typing indicator to a conversation.
	CommandTyping
	// CommandCallSignal relays call-negotiation metadata to one user.
	CommandCallSignal
	// CommandMessageDelivered broadcasts a delivery receipt to a conversation.
	CommandMessageDelivered
	// CommandMessageRead broadcasts a read receipt to a conversation.
	CommandMessageRead
	// CommandStatusUpdate requests an explicit presence change.
	CommandStatusUpdate
)

// Command represents an action requested by a session.
type Command struct {
	Kind         CommandKind
	UserID       string          // authenticate
	Token        string          // authenticate
	Conversation string          // conversation-scoped commands
	To           string          // call-signal target identity
	Signal       json.RawMessage // opaque call-signal payload
	IsTyping     bool
	MessageID    string
	Status       Status
}
