package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(nil, nil, nil)
	go hub.Run(ctx)
	return hub
}

func TestHubCallSignalDeliveredToBoundSession(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	bob := authenticateSession(t, hub, "s2", "bob")
	drain(alice.Events)
	drain(bob.Events)

	payload := json.RawMessage(`{"to":"bob","type":"offer","sdp":"v=0"}`)
	alice.Commands <- &Command{Kind: CommandCallSignal, To: "bob", Signal: payload}

	ev := mustEvent(t, bob.Events, EventCallSignal)
	if ev.User != "alice" {
		t.Fatalf("expected from alice, got %q", ev.User)
	}
	if string(ev.Signal) != string(payload) {
		t.Fatalf("signal payload was transformed: %s", ev.Signal)
	}

	mustNoEvent(t, alice.Events, EventCallSignalError)
}

func TestHubCallSignalToOfflineUser(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	drain(alice.Events)

	alice.Commands <- &Command{Kind: CommandCallSignal, To: "ghost-user"}

	ev := mustEvent(t, alice.Events, EventCallSignalError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUserOffline {
		t.Fatalf("expected user_offline error, got %+v", ev)
	}
}

func TestHubTypingBroadcastExcludesSender(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	bob := authenticateSession(t, hub, "s2", "bob")

	alice.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	bob.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	// Let the joins land before typing.
	time.Sleep(50 * time.Millisecond)
	drain(alice.Events)
	drain(bob.Events)

	alice.Commands <- &Command{Kind: CommandTyping, Conversation: "42", IsTyping: true}

	ev := mustEvent(t, bob.Events, EventTyping)
	if ev.User != "alice" || ev.Conversation != "42" || !ev.IsTyping {
		t.Fatalf("unexpected typing event: %+v", ev)
	}

	mustNoEvent(t, alice.Events, EventTyping)
}

func TestHubReadReceiptTagged(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	bob := authenticateSession(t, hub, "s2", "bob")

	alice.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	bob.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	time.Sleep(50 * time.Millisecond)

	bob.Commands <- &Command{Kind: CommandMessageRead, Conversation: "42", MessageID: "m9"}

	ev := mustEvent(t, alice.Events, EventMessageRead)
	if ev.User != "bob" || ev.MessageID != "m9" || ev.TS == 0 {
		t.Fatalf("unexpected read receipt: %+v", ev)
	}
}

func TestHubDisconnectCleansUpEverything(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	bob := authenticateSession(t, hub, "s2", "bob")

	alice.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	bob.Commands <- &Command{Kind: CommandJoinConversation, Conversation: "42"}
	time.Sleep(50 * time.Millisecond)
	drain(bob.Events)

	hub.UnregisterSession(alice)

	ev := mustEvent(t, bob.Events, EventUserStatusChanged)
	if ev.User != "alice" || ev.Status != StatusOffline {
		t.Fatalf("expected alice offline, got %+v", ev)
	}

	deadline := time.Now().Add(time.Second)
	for {
		snap := hub.Snapshot()
		if snap.ActiveSessions == 1 && len(snap.BoundUsers) == 1 {
			if snap.BoundUsers[0] != "bob" {
				t.Fatalf("unexpected bound users: %v", snap.BoundUsers)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cleanup incomplete: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A call to the departed user must report offline.
	bob.Commands <- &Command{Kind: CommandCallSignal, To: "alice"}
	ev = mustEvent(t, bob.Events, EventCallSignalError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUserOffline {
		t.Fatalf("expected user_offline after disconnect, got %+v", ev)
	}
}

func TestHubLastConnectionWins(t *testing.T) {
	hub := startHub(t)

	first := authenticateSession(t, hub, "s1", "alice")
	second := authenticateSession(t, hub, "s2", "alice")
	bob := authenticateSession(t, hub, "s3", "bob")
	drain(first.Events)
	drain(second.Events)

	bob.Commands <- &Command{Kind: CommandCallSignal, To: "alice", Signal: json.RawMessage(`{"type":"offer"}`)}

	mustEvent(t, second.Events, EventCallSignal)
	mustNoEvent(t, first.Events, EventCallSignal)

	// The stale session disconnecting must not evict the fresh binding.
	hub.UnregisterSession(first)
	time.Sleep(50 * time.Millisecond)
	drain(bob.Events)

	bob.Commands <- &Command{Kind: CommandCallSignal, To: "alice", Signal: json.RawMessage(`{"type":"offer"}`)}
	mustEvent(t, second.Events, EventCallSignal)
	mustNoEvent(t, bob.Events, EventCallSignalError)
}

func TestHubStatusUpdateBroadcast(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")
	bob := authenticateSession(t, hub, "s2", "bob")
	drain(bob.Events)

	alice.Commands <- &Command{Kind: CommandStatusUpdate, Status: StatusAway}

	ev := mustEvent(t, bob.Events, EventUserStatusChanged)
	if ev.User != "alice" || ev.Status != StatusAway {
		t.Fatalf("unexpected status event: %+v", ev)
	}
}

func TestHubStatusUpdateRejectsOffline(t *testing.T) {
	hub := startHub(t)

	alice := authenticateSession(t, hub, "s1", "alice")

	alice.Commands <- &Command{Kind: CommandStatusUpdate, Status: StatusOffline}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeInvalidStatus {
		t.Fatalf("expected invalid_status, got %+v", ev)
	}
}

func TestHubRejectsUnauthenticatedRelay(t *testing.T) {
	hub := startHub(t)

	sess := NewSession("s1")
	hub.RegisterSession(sess)

	sess.Commands <- &Command{Kind: CommandTyping, Conversation: "42", IsTyping: true}

	ev := mustEvent(t, sess.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", ev)
	}
}

func TestHubEmptyUserIDAuthFailsSoftly(t *testing.T) {
	hub := startHub(t)

	sess := NewSession("s1")
	hub.RegisterSession(sess)

	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: ""}

	ev := mustEvent(t, sess.Events, EventAuthError)
	if ev.Error == nil || ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", ev)
	}

	// The session stays usable and can authenticate again.
	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: "alice"}
	mustEvent(t, sess.Events, EventAuthenticated)
}

func TestHubDropsCommandsAfterDisconnect(t *testing.T) {
	hub := startHub(t)

	sess := NewSession("s1")
	hub.RegisterSession(sess)
	hub.UnregisterSession(sess)

	select {
	case <-sess.done:
	case <-time.After(time.Second):
		t.Fatal("session was not torn down on disconnect")
	}

	// A command arriving after teardown must not resurrect bindings or
	// rooms for the dead session.
	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: "alice"}
	time.Sleep(100 * time.Millisecond)

	snap := hub.Snapshot()
	if snap.ActiveSessions != 0 || len(snap.BoundUsers) != 0 || snap.Rooms != 0 {
		t.Fatalf("dead session resurrected state: %+v", snap)
	}
}

func TestHubReauthenticateLeavesOldPersonalRoom(t *testing.T) {
	hub := startHub(t)

	sess := authenticateSession(t, hub, "s1", "alice")
	caller := authenticateSession(t, hub, "s2", "carol")
	drain(sess.Events)

	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: "bob"}
	mustEvent(t, sess.Events, EventAuthenticated)

	snap := hub.Snapshot()
	for _, u := range snap.BoundUsers {
		if u == "alice" {
			t.Fatalf("old identity still bound: %v", snap.BoundUsers)
		}
	}
	// Only user:bob and user:carol should survive; user:alice is empty
	// and collected.
	if snap.Rooms != 2 {
		t.Fatalf("expected 2 personal rooms, got %d", snap.Rooms)
	}

	drain(caller.Events)
	caller.Commands <- &Command{Kind: CommandCallSignal, To: "alice"}
	ev := mustEvent(t, caller.Events, EventCallSignalError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUserOffline {
		t.Fatalf("expected user_offline for vacated identity, got %+v", ev)
	}
}

type rejectAllIdentity struct{}

func (rejectAllIdentity) Accept(userID, token string) (string, error) {
	return "", errors.New("token rejected")
}

func TestHubIdentityRejection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(rejectAllIdentity{}, nil, nil)
	go hub.Run(ctx)

	sess := NewSession("s1")
	hub.RegisterSession(sess)

	sess.Commands <- &Command{Kind: CommandAuthenticate, UserID: "alice", Token: "bad"}

	ev := mustEvent(t, sess.Events, EventAuthError)
	if ev.Error == nil || ev.Error.Code != ErrCodeAuthFailed {
		t.Fatalf("expected auth_failed, got %+v", ev)
	}
}
