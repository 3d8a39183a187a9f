package core

import "sync"

// Room name prefixes. A personal room addresses a user regardless of which
// conversation they are viewing; a conversation room scopes typing and
// receipt broadcasts to one conversation.
const (
	personalRoomPrefix     = "user:"
	conversationRoomPrefix = "conversation:"
)

// PersonalRoom returns the room name addressing a single user identity.
func PersonalRoom(userID string) string {
	return personalRoomPrefix + userID
}

// ConversationRoom returns the room name for a conversation.
func ConversationRoom(conversationID string) string {
	return conversationRoomPrefix + conversationID
}

// Room groups sessions subscribed to the same broadcast group.
type Room struct {
	Name    string
	members map[*Session]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[*Session]struct{}),
	}
}

// broadcast sends an event to all member sessions, except the optionally
// excluded sender. Delivery is fire-and-forget.
func (r *Room) broadcast(event *Event, exclude *Session) {
	for member := range r.members {
		if member == exclude {
			continue
		}
		member.send(event)
	}
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// RoomManager tracks which sessions belong to which rooms. Rooms are
// created implicitly on first join and dropped when their last member
// leaves. Like the Registry, it is written only by the hub goroutine but
// read by the status endpoint, hence the mutex.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRoomManager constructs an empty room manager.
func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// Join adds the session to the named room, creating the room if needed.
// Idempotent: returns false when the session was already a member.
func (m *RoomManager) Join(sess *Session, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[name]
	if !ok {
		room = newRoom(name)
		m.rooms[name] = room
	}
	if _, exists := room.members[sess]; exists {
		return false
	}
	room.members[sess] = struct{}{}
	sess.Rooms[name] = struct{}{}
	return true
}

// Leave removes the session from the named room and drops the room once it
// has no members left. Returns false when the session was not a member.
func (m *RoomManager) Leave(sess *Session, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(sess, name)
}

func (m *RoomManager) leaveLocked(sess *Session, name string) bool {
	room, ok := m.rooms[name]
	if !ok {
		return false
	}
	if _, exists := room.members[sess]; !exists {
		return false
	}
	delete(room.members, sess)
	delete(sess.Rooms, name)
	if room.empty() {
		delete(m.rooms, name)
	}
	return true
}

// LeaveAll removes the session from every room it joined and returns the
// names of the rooms it was removed from. Called on session teardown.
func (m *RoomManager) LeaveAll(sess *Session) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(sess.Rooms))
	for name := range sess.Rooms {
		names = append(names, name)
	}
	for _, name := range names {
		m.leaveLocked(sess, name)
	}
	return names
}

// Broadcast delivers an event to every member of the named room except the
// optionally excluded sender. A broadcast to an unknown room is a no-op.
func (m *RoomManager) Broadcast(name string, event *Event, exclude *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if room, ok := m.rooms[name]; ok {
		room.broadcast(event, exclude)
	}
}

// RoomCount returns the number of live rooms.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
