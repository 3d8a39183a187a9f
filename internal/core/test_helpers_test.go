package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// authenticateSession registers a session with the hub and binds it to the
// given identity, draining the authenticated ack.
func authenticateSession(t *testing.T, hub *Hub, id, userID string) *Session {
	t.Helper()

	sess := NewSession(id)
	hub.RegisterSession(sess)
	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: userID}
	mustEvent(t, sess.Events, EventAuthenticated)
	return sess
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
