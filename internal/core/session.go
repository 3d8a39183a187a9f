package core

import "sync"

// Session is one live transport connection as seen by the core layer.
// It is created unauthenticated; UserID stays empty until an authenticate
// command is accepted. Only the Registry (driven by the hub goroutine)
// mutates a Session after construction.
type Session struct {
	ID       string
	UserID   string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	done     chan struct{}
	downOnce sync.Once
}

// NewSession constructs a session with initialized channels.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// teardown signals the session's pump to stop. Safe to call more than once.
func (s *Session) teardown() {
	s.downOnce.Do(func() { close(s.done) })
}

// send queues an event for the session's write loop.
func (s *Session) send(event *Event) {
	select {
	case s.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
