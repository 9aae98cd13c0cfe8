package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"gwi.com/chat-agent/internal/observability"
)

func TestSessionManagerScopesByOwner(t *testing.T) {
	m := NewSessionManager(newFlakyStore(), echoGenerator(), observability.Discard())
	defer m.CloseAll()

	if _, err := m.Create(0); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("Create without owner = %v", err)
	}

	sess, err := m.Create(7)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got, err := m.Get(sess.ID(), 7); err != nil || got != sess {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := m.Get(sess.ID(), 8); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign Get = %v", err)
	}
	if err := m.Delete(sess.ID(), 8); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign Delete = %v", err)
	}
	if err := m.Delete(sess.ID(), 7); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(sess.ID(), 7); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}
}

func TestSweepIdleRemovesOnlyStaleSessions(t *testing.T) {
	m := NewSessionManager(newFlakyStore(), echoGenerator(), observability.Discard())
	defer m.CloseAll()

	stale, _ := m.Create(1)
	fresh, _ := m.Create(1)

	stale.mu.Lock()
	stale.lastActive = time.Now().UTC().Add(-2 * time.Hour)
	stale.mu.Unlock()

	if n := m.SweepIdle(time.Hour); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if _, err := m.Get(stale.ID(), 1); !errors.Is(err, ErrSessionNotFound) {
		t.Error("stale session survived the sweep")
	}
	if _, err := m.Get(fresh.ID(), 1); err != nil {
		t.Error("fresh session was swept")
	}
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	m := NewSessionManager(newFlakyStore(), echoGenerator(), observability.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, time.Millisecond, time.Hour) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunSweeper returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop")
	}
}
