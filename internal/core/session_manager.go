package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionManager holds the ephemeral sessions of every connected client.
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	store     MessageStore
	generator ResponseGenerator
	logger    *slog.Logger
}

func NewSessionManager(st MessageStore, gen ResponseGenerator, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:  make(map[string]*Session),
		store:     st,
		generator: gen,
		logger:    logger,
	}
}

func (m *SessionManager) Create(ownerID int64) (*Session, error) {
	if ownerID <= 0 {
		return nil, ErrAuthRequired
	}
	sess := NewSession(uuid.NewString(), ownerID, m.store, m.generator, m.logger)

	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", sess.ID(), "user_id", ownerID)
	return sess, nil
}

// Get returns ErrSessionNotFound for unknown ids and for sessions of another owner.
func (m *SessionManager) Get(id string, ownerID int64) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || sess.OwnerID() != ownerID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *SessionManager) Delete(id string, ownerID int64) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok || sess.OwnerID() != ownerID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	sess.Close()
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SweepIdle closes sessions with no activity for ttl and reports how many were removed.
func (m *SessionManager) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	var idle []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		sess.Close()
	}
	if len(idle) > 0 {
		m.logger.Info("idle sessions swept", "count", len(idle))
	}
	return len(idle)
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval, ttl time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.SweepIdle(ttl)
		}
	}
}

// CloseAll drains every session's pending writes. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
