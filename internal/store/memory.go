package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a simple in-memory implementation of every store operation.
// It is NOT persistent and is only suitable for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextUser int64
	users    map[string]*User
	chats    map[string]*Chat
	messages map[string][]Message // per chat, in insertion order
	touched  map[string]int64     // chat id -> last activity sequence, breaks updated_at ties
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]*User),
		chats:    make(map[string]*Chat),
		messages: make(map[string][]Message),
		touched:  make(map[string]int64),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetUserByExternalID(_ context.Context, externalUserID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[externalUserID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, externalUserID, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[externalUserID]; exists {
		return nil, errors.New("user already exists")
	}
	return s.createUserLocked(externalUserID, passwordHash), nil
}

func (s *MemoryStore) GetOrCreateUser(_ context.Context, externalUserID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[externalUserID]; ok {
		cp := *u
		return &cp, nil
	}
	return s.createUserLocked(externalUserID, ""), nil
}

func (s *MemoryStore) createUserLocked(externalUserID, passwordHash string) *User {
	s.nextUser++
	u := &User{ID: s.nextUser, ExternalUserID: externalUserID, PasswordHash: passwordHash, CreatedAt: s.now()}
	s.users[externalUserID] = u
	cp := *u
	return &cp
}

func (s *MemoryStore) CreateChat(_ context.Context, userID int64, title string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &Chat{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	s.chats[c.ID] = c
	s.touchLocked(c.ID, now)
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) touchLocked(chatID string, at time.Time) {
	s.seq++
	s.touched[chatID] = s.seq
	if c, ok := s.chats[chatID]; ok {
		c.UpdatedAt = at
	}
}

func (s *MemoryStore) ListChats(_ context.Context, userID int64) ([]Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Chat{}
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b Chat) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return int(s.touched[b.ID] - s.touched[a.ID])
	})
	return out, nil
}

func (s *MemoryStore) ownedLocked(userID int64, chatID string) (*Chat, error) {
	c, ok := s.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) DeleteChat(_ context.Context, userID int64, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(userID, chatID); err != nil {
		return nil
	}
	delete(s.chats, chatID)
	delete(s.messages, chatID)
	delete(s.touched, chatID)
	return nil
}

func (s *MemoryStore) RenameChat(_ context.Context, userID int64, chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ownedLocked(userID, chatID)
	if err != nil {
		return err
	}
	c.Title = title
	s.touchLocked(chatID, s.now())
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, userID int64, in NewMessage) (*Message, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(userID, in.ChatID); err != nil {
		return nil, err
	}

	msg := Message{
		ID:        uuid.NewString(),
		ChatID:    in.ChatID,
		Role:      in.Role,
		Content:   in.Content,
		Model:     in.Model,
		CreatedAt: s.now(),
	}
	s.messages[in.ChatID] = append(s.messages[in.ChatID], msg)
	s.touchLocked(in.ChatID, msg.CreatedAt)
	return &msg, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, userID int64, chatID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedLocked(userID, chatID); err != nil {
		return nil, err
	}

	out := slices.Clone(s.messages[chatID])
	if out == nil {
		out = []Message{}
	}
	// Stable sort keeps insertion order for equal timestamps.
	slices.SortStableFunc(out, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
