package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Identity accepts an authenticate attempt and returns the verified user
// identity. Verification strength is up to the implementation; the hub
// treats the returned identity as authoritative. A nil Identity degrades
// the hub to trusting the client-asserted user id (see internal/auth for
// the trust boundary discussion).
type Identity interface {
	Accept(userID, token string) (string, error)
}

// Snapshot is a point-in-time view of the hub for the status endpoint.
type Snapshot struct {
	BoundUsers     []string
	ActiveSessions int
	Rooms          int
}

type frame struct {
	sess *Session
	cmd  *Command
}

// Hub owns the connection registry, room membership, and presence
// transitions, and routes signaling events between sessions. All state is
// mutated on the single Run goroutine; per-session pumps forward commands
// in the order each session sent them.
type Hub struct {
	registry *Registry
	rooms    *RoomManager
	presence *PresenceManager
	identity Identity
	log      *zerolog.Logger

	register   chan *Session
	unregister chan *Session
	inbound    chan frame
	done       chan struct{}
}

// NewHub wires a hub over the given collaborators. identity may be nil
// (trust client-asserted ids) and presence may be nil (no persistence),
// which the tests rely on.
func NewHub(identity Identity, presence *PresenceManager, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if presence == nil {
		presence = NewPresenceManager(nil, logger)
	}
	return &Hub{
		registry:   NewRegistry(),
		rooms:      NewRoomManager(),
		presence:   presence,
		identity:   identity,
		log:        logger,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbound:    make(chan frame),
		done:       make(chan struct{}),
	}
}

// Run processes registrations, disconnects, and session commands until the
// context is cancelled. It is the only goroutine that mutates the registry
// and room manager, so no event can interleave with a broadcast in flight.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case sess := <-h.register:
			h.registry.Register(sess)
			h.log.Debug().Str("session_id", sess.ID).Msg("session registered")
			go h.pump(ctx, sess)
		case sess := <-h.unregister:
			h.handleDisconnect(sess)
		case fr := <-h.inbound:
			// A frame can be in flight while its session disconnects;
			// dispatching it would resurrect bindings and rooms no
			// teardown will ever clean.
			if !h.registry.Has(fr.sess) {
				h.log.Debug().Str("session_id", fr.sess.ID).Msg("dropping command from departed session")
				continue
			}
			h.dispatch(fr.sess, fr.cmd)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterSession hands a freshly accepted transport connection to the hub.
func (h *Hub) RegisterSession(sess *Session) {
	select {
	case h.register <- sess:
	case <-h.done:
	}
}

// UnregisterSession tears the session down: room cleanup, presence offline
// if it was the bound session, registry removal, in that order.
func (h *Hub) UnregisterSession(sess *Session) {
	select {
	case h.unregister <- sess:
	case <-h.done:
	}
}

// Snapshot returns the currently bound users and live session count for
// the status endpoint. Reads the shared structures directly; O(n) over
// active sessions.
func (h *Hub) Snapshot() Snapshot {
	return Snapshot{
		BoundUsers:     h.registry.BoundUsers(),
		ActiveSessions: h.registry.SessionCount(),
		Rooms:          h.rooms.RoomCount(),
	}
}

// pump forwards the session's commands to the hub loop one at a time,
// preserving the order the session sent them. It stops when the session is
// torn down, its command channel is closed, or the hub shuts down.
func (h *Hub) pump(ctx context.Context, sess *Session) {
	for {
		select {
		case cmd, ok := <-sess.Commands:
			if !ok {
				return
			}
			select {
			case h.inbound <- frame{sess: sess, cmd: cmd}:
			case <-sess.done:
				return
			case <-ctx.Done():
				return
			}
		case <-sess.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dispatch(sess *Session, cmd *Command) {
	switch cmd.Kind {
	case CommandAuthenticate:
		h.handleAuthenticate(sess, cmd)
	case CommandJoinConversation:
		h.handleJoinConversation(sess, cmd)
	case CommandLeaveConversation:
		h.handleLeaveConversation(sess, cmd)
	case CommandTyping:
		h.handleTyping(sess, cmd)
	case CommandCallSignal:
		h.handleCallSignal(sess, cmd)
	case CommandMessageDelivered:
		h.handleReceipt(sess, cmd, EventMessageDelivered)
	case CommandMessageRead:
		h.handleReceipt(sess, cmd, EventMessageRead)
	case CommandStatusUpdate:
		h.handleStatusUpdate(sess, cmd)
	default:
		h.log.Warn().Str("session_id", sess.ID).Int("kind", int(cmd.Kind)).Msg("unknown command kind")
	}
}

func (h *Hub) handleAuthenticate(sess *Session, cmd *Command) {
	userID := cmd.UserID
	if h.identity != nil {
		verified, err := h.identity.Accept(cmd.UserID, cmd.Token)
		if err != nil {
			h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("authenticate rejected")
			sess.send(&Event{
				Kind:  EventAuthError,
				Error: coreError(ErrCodeAuthFailed, "authentication rejected"),
			})
			return
		}
		userID = verified
	}

	prev := sess.UserID
	if !h.registry.Bind(sess, userID) {
		// Malformed identity must not kill the session.
		h.log.Warn().Str("session_id", sess.ID).Msg("authenticate with empty user id")
		sess.send(&Event{
			Kind:  EventAuthError,
			Error: coreError(ErrCodeBadRequest, "user id is required"),
		})
		return
	}

	// Re-authenticating under a new identity vacates the old personal room
	// along with the old binding.
	if prev != "" && prev != userID {
		h.rooms.Leave(sess, PersonalRoom(prev))
	}

	h.rooms.Join(sess, PersonalRoom(userID))
	h.presence.SetOnline(userID, sess.ID)
	h.broadcastStatus(userID, StatusOnline, sess)

	sess.send(&Event{Kind: EventAuthenticated, User: userID, TS: time.Now().Unix()})
	h.log.Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("session authenticated")
}

func (h *Hub) handleJoinConversation(sess *Session, cmd *Command) {
	if !h.requireAuth(sess) {
		return
	}
	h.rooms.Join(sess, ConversationRoom(cmd.Conversation))
	h.log.Debug().
		Str("user_id", sess.UserID).
		Str("conversation_id", cmd.Conversation).
		Msg("joined conversation")
}

func (h *Hub) handleLeaveConversation(sess *Session, cmd *Command) {
	if !h.requireAuth(sess) {
		return
	}
	h.rooms.Leave(sess, ConversationRoom(cmd.Conversation))
	h.log.Debug().
		Str("user_id", sess.UserID).
		Str("conversation_id", cmd.Conversation).
		Msg("left conversation")
}

func (h *Hub) handleTyping(sess *Session, cmd *Command) {
	if !h.requireAuth(sess) {
		return
	}
	h.rooms.Broadcast(ConversationRoom(cmd.Conversation), &Event{
		Kind:         EventTyping,
		User:         sess.UserID,
		Conversation: cmd.Conversation,
		IsTyping:     cmd.IsTyping,
	}, sess)
}

func (h *Hub) handleCallSignal(sess *Session, cmd *Command) {
	if !h.requireAuth(sess) {
		return
	}

	target := h.registry.Resolve(cmd.To)
	if target == nil {
		// Explicit reply so the caller UI can distinguish "unreachable"
		// from "ringing, no answer".
		sess.send(&Event{
			Kind:  EventCallSignalError,
			Error: coreError(ErrCodeUserOffline, "User is offline"),
		})
		h.log.Debug().
			Str("from", sess.UserID).
			Str("to", cmd.To).
			Msg("call signal to offline user")
		return
	}

	target.send(&Event{
		Kind:   EventCallSignal,
		User:   sess.UserID,
		Signal: cmd.Signal,
	})
}

func (h *Hub) handleReceipt(sess *Session, cmd *Command, kind EventKind) {
	if !h.requireAuth(sess) {
		return
	}
	h.rooms.Broadcast(ConversationRoom(cmd.Conversation), &Event{
		Kind:         kind,
		User:         sess.UserID,
		Conversation: cmd.Conversation,
		MessageID:    cmd.MessageID,
		TS:           time.Now().Unix(),
	}, sess)
}

func (h *Hub) handleStatusUpdate(sess *Session, cmd *Command) {
	if !h.requireAuth(sess) {
		return
	}
	if !cmd.Status.valid() {
		sess.send(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeInvalidStatus, "status must be online or away"),
		})
		return
	}

	h.presence.SetStatus(sess.UserID, sess.ID, cmd.Status)
	h.broadcastStatus(sess.UserID, cmd.Status, sess)
}

// handleDisconnect unwinds session state: room membership first, then the
// presence transition (only when this session was still the bound one for
// its user), then the registry entry.
func (h *Hub) handleDisconnect(sess *Session) {
	rooms := h.rooms.LeaveAll(sess)

	wasBound := h.registry.Unregister(sess)
	if wasBound {
		h.presence.SetOffline(sess.UserID)
		h.broadcastStatus(sess.UserID, StatusOffline, sess)
	}

	sess.teardown()

	h.log.Debug().
		Str("session_id", sess.ID).
		Str("user_id", sess.UserID).
		Int("rooms", len(rooms)).
		Bool("was_bound", wasBound).
		Msg("session disconnected")
}

// broadcastStatus announces a presence transition to every other session.
// Best-effort: nothing is acknowledged or retried.
func (h *Hub) broadcastStatus(userID string, status Status, exclude *Session) {
	event := &Event{
		Kind:   EventUserStatusChanged,
		User:   userID,
		Status: status,
		TS:     time.Now().Unix(),
	}
	h.registry.Each(func(s *Session) {
		if s != exclude {
			s.send(event)
		}
	})
}

func (h *Hub) requireAuth(sess *Session) bool {
	if sess.UserID != "" {
		return true
	}
	sess.send(&Event{
		Kind:  EventError,
		Error: coreError(ErrCodeUnauthorized, "authenticate first"),
	})
	return false
}
