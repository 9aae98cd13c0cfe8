package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"gwi.com/chat-agent/internal/observability"
	"gwi.com/chat-agent/internal/store"
)

var errBoom = errors.New("boom")

// flakyStore wraps the memory store with switchable failures.
type flakyStore struct {
	*store.MemoryStore
	failCreate atomic.Bool
	failAppend atomic.Bool
	failList   atomic.Bool
	failDelete atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore()}
}

func (f *flakyStore) CreateChat(ctx context.Context, ownerID int64, title string) (*store.Chat, error) {
	if f.failCreate.Load() {
		return nil, errBoom
	}
	return f.MemoryStore.CreateChat(ctx, ownerID, title)
}

func (f *flakyStore) AppendMessage(ctx context.Context, ownerID int64, msg store.NewMessage) (*store.Message, error) {
	if f.failAppend.Load() {
		return nil, errBoom
	}
	return f.MemoryStore.AppendMessage(ctx, ownerID, msg)
}

func (f *flakyStore) ListMessages(ctx context.Context, ownerID int64, chatID string) ([]store.Message, error) {
	if f.failList.Load() {
		return nil, errBoom
	}
	return f.MemoryStore.ListMessages(ctx, ownerID, chatID)
}

func (f *flakyStore) DeleteChat(ctx context.Context, ownerID int64, chatID string) error {
	if f.failDelete.Load() {
		return errBoom
	}
	return f.MemoryStore.DeleteChat(ctx, ownerID, chatID)
}

type genResult struct {
	reply string
	err   error
}

// gatedGenerator blocks every call until the test releases it.
type gatedGenerator struct {
	started chan GenerationRequest
	release chan genResult
	// ignoreCancel keeps waiting for release after ctx is done, like a backend that cannot be aborted.
	ignoreCancel bool
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{
		started: make(chan GenerationRequest, 1),
		release: make(chan genResult, 1),
	}
}

func (g *gatedGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	g.started <- req
	if g.ignoreCancel {
		r := <-g.release
		return r.reply, r.err
	}
	select {
	case r := <-g.release:
		return r.reply, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// funcGenerator answers immediately.
type funcGenerator func(req GenerationRequest) (string, error)

func (f funcGenerator) Generate(_ context.Context, req GenerationRequest) (string, error) {
	return f(req)
}

func echoGenerator() funcGenerator {
	return func(req GenerationRequest) (string, error) {
		return "echo: " + req.Prompt, nil
	}
}

func newOwner(t *testing.T, st *flakyStore) int64 {
	t.Helper()
	u, err := st.GetOrCreateUser(context.Background(), "tester")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	return u.ID
}

func newTestSession(t *testing.T, gen ResponseGenerator) (*Session, *flakyStore, int64) {
	t.Helper()
	st := newFlakyStore()
	owner := newOwner(t, st)
	sess := NewSession("test-session", owner, st, gen, observability.Discard())
	t.Cleanup(sess.Close)
	return sess, st, owner
}

func flush(t *testing.T, sess *Session) {
	t.Helper()
	if err := sess.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}
