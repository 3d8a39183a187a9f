package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeAuthenticate      = "authenticate"
	InboundTypeJoinConversation  = "join-conversation"
	InboundTypeLeaveConversation = "leave-conversation"
	InboundTypeTyping            = "typing"
	InboundTypeCallSignal        = "call-signal"
	InboundTypeMessageDelivered  = "message-delivered"
	InboundTypeMessageRead       = "message-read"
	InboundTypeStatusUpdate      = "status-update"

	OutboundTypeAuthenticated     = "authenticated"
	OutboundTypeAuthError         = "auth_error"
	OutboundTypeCallSignal        = "call-signal"
	OutboundTypeCallSignalError   = "call-signal-error"
	OutboundTypeTyping            = "typing"
	OutboundTypeMessageDelivered  = "message-delivered"
	OutboundTypeMessageRead       = "message-read"
	OutboundTypeUserStatusChanged = "user-status-changed"
	OutboundTypeError             = "error"
)

// AuthenticateData identifies the user behind a session. The token is
// accepted, not verified cryptographically, by this server (see
// internal/auth).
type AuthenticateData struct {
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

// ConversationData addresses a conversation room.
type ConversationData struct {
	ConversationID string `json:"conversationId"`
}

// TypingData is a typing indicator scoped to a conversation.
type TypingData struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// ReceiptData acknowledges delivery or reading of a message.
type ReceiptData struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// StatusData requests an explicit presence change.
type StatusData struct {
	Status string `json:"status"`
}

// CallSignalTarget is the only field the relay reads out of a call-signal
// payload; the rest is forwarded untouched.
type CallSignalTarget struct {
	To string `json:"to"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// AuthenticatedData confirms a successful authenticate.
type AuthenticatedData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// AuthErrorData rejects an authenticate attempt.
type AuthErrorData struct {
	Error string `json:"error"`
}

// CallSignalErrorData tells the caller their target is unreachable.
type CallSignalErrorData struct {
	Error string `json:"error"`
}

// TypingEvent notifies conversation members about a typing change.
type TypingEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// ReceiptEvent notifies conversation members about a delivery/read receipt.
type ReceiptEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	TS             int64  `json:"ts"`
}

// StatusEvent announces a presence transition.
type StatusEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
