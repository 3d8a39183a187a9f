package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type presenceWrite struct {
	userID    string
	status    string
	sessionID string
}

type recordingStore struct {
	writes chan presenceWrite
	err    error
}

func (s *recordingStore) SetStatus(ctx context.Context, userID, status string, lastSeen time.Time, sessionID string) error {
	s.writes <- presenceWrite{userID: userID, status: status, sessionID: sessionID}
	return s.err
}

func mustWrite(t *testing.T, writes <-chan presenceWrite) presenceWrite {
	t.Helper()
	select {
	case w := <-writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("expected presence write")
		return presenceWrite{}
	}
}

func TestPresencePersistsOnline(t *testing.T) {
	store := &recordingStore{writes: make(chan presenceWrite, 4)}
	p := NewPresenceManager(store, nil)

	p.SetOnline("alice", "s1")

	w := mustWrite(t, store.writes)
	if w.userID != "alice" || w.status != "online" || w.sessionID != "s1" {
		t.Fatalf("unexpected write: %+v", w)
	}
}

func TestPresenceOfflineClearsBoundSession(t *testing.T) {
	store := &recordingStore{writes: make(chan presenceWrite, 4)}
	p := NewPresenceManager(store, nil)

	p.SetOffline("alice")

	w := mustWrite(t, store.writes)
	if w.status != "offline" || w.sessionID != "" {
		t.Fatalf("offline write should clear bound session: %+v", w)
	}
}

func TestPresenceStoreFailureIsSwallowed(t *testing.T) {
	store := &recordingStore{writes: make(chan presenceWrite, 4), err: errors.New("db locked")}
	p := NewPresenceManager(store, nil)

	p.SetStatus("alice", "s1", StatusAway)
	mustWrite(t, store.writes)
	// No panic, no retry; a later transition still persists.
	p.SetOnline("alice", "s1")
	w := mustWrite(t, store.writes)
	if w.status != "online" {
		t.Fatalf("unexpected write: %+v", w)
	}
}

type slowOfflineStore struct {
	writes chan presenceWrite
}

func (s *slowOfflineStore) SetStatus(ctx context.Context, userID, status string, lastSeen time.Time, sessionID string) error {
	if status == "offline" {
		time.Sleep(100 * time.Millisecond)
	}
	s.writes <- presenceWrite{userID: userID, status: status, sessionID: sessionID}
	return nil
}

func TestPresenceWritesStayOrdered(t *testing.T) {
	store := &slowOfflineStore{writes: make(chan presenceWrite, 4)}
	p := NewPresenceManager(store, nil)

	// A slow offline write must not overtake the reconnect decided after
	// it; the durable record has to end up online.
	p.SetOffline("alice")
	p.SetOnline("alice", "s2")

	first := mustWrite(t, store.writes)
	second := mustWrite(t, store.writes)
	if first.status != "offline" || second.status != "online" {
		t.Fatalf("writes out of order: %+v then %+v", first, second)
	}
	if second.sessionID != "s2" {
		t.Fatalf("final write lost bound session: %+v", second)
	}
}

func TestPresenceNilStore(t *testing.T) {
	p := NewPresenceManager(nil, nil)
	p.SetOnline("alice", "s1")
	p.SetOffline("alice")
}
