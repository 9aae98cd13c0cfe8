package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gwi.com/chat-agent/internal/store"
)

// ChatService is the facade the transport layers talk to.
type ChatService struct {
	users    UserStore
	sessions *SessionManager
	analyzer PageAnalyzer
}

func NewChatService(users UserStore, sessions *SessionManager, analyzer PageAnalyzer) *ChatService {
	return &ChatService{
		users:    users,
		sessions: sessions,
		analyzer: analyzer,
	}
}

func (s *ChatService) Sessions() *SessionManager {
	return s.sessions
}

var ErrUserExists = errors.New("user already exists")

// CreateUser registers a new account. The password must already be hashed.
func (s *ChatService) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*store.User, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, &ValidationError{Field: "username", Message: "is required"}
	}
	existing, err := s.users.GetUserByExternalID(ctx, externalUserID)
	if err != nil {
		return nil, &StoreError{Op: "get user", Err: err}
	}
	if existing != nil {
		return nil, ErrUserExists
	}
	user, err := s.users.CreateUser(ctx, externalUserID, passwordHash)
	if err != nil {
		return nil, &StoreError{Op: "create user", Err: err}
	}
	return user, nil
}

// GetUserByExternalID returns nil without error when the user does not exist.
func (s *ChatService) GetUserByExternalID(ctx context.Context, externalUserID string) (*store.User, error) {
	user, err := s.users.GetUserByExternalID(ctx, externalUserID)
	if err != nil {
		return nil, &StoreError{Op: "get user", Err: err}
	}
	return user, nil
}

// GetOrCreateUser ensures a user exists, for clients without a login step.
func (s *ChatService) GetOrCreateUser(ctx context.Context, externalUserID string) (*store.User, error) {
	if strings.TrimSpace(externalUserID) == "" {
		return nil, &ValidationError{Field: "username", Message: "is required"}
	}
	user, err := s.users.GetOrCreateUser(ctx, externalUserID)
	if err != nil {
		return nil, &StoreError{Op: "get or create user", Err: err}
	}
	return user, nil
}

// StartSession opens a session and loads the owner's chat list into it.
func (s *ChatService) StartSession(ctx context.Context, ownerID int64) (*Session, error) {
	sess, err := s.sessions.Create(ownerID)
	if err != nil {
		return nil, err
	}
	if err := sess.RefreshChats(ctx); err != nil {
		s.sessions.Delete(sess.ID(), ownerID)
		return nil, err
	}
	return sess, nil
}

func (s *ChatService) Session(id string, ownerID int64) (*Session, error) {
	return s.sessions.Get(id, ownerID)
}

func (s *ChatService) EndSession(id string, ownerID int64) error {
	return s.sessions.Delete(id, ownerID)
}

func (s *ChatService) Models() []ModelDescriptor {
	return AvailableModels()
}

// AnalyzePage fetches a page through the analyzer and attaches it to the session.
func (s *ChatService) AnalyzePage(ctx context.Context, sess *Session, rawURL string) (*PageContext, error) {
	if s.analyzer == nil {
		return nil, errors.New("page analysis is not configured")
	}
	pc, err := s.analyzer.Analyze(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze page: %w", err)
	}
	if err := sess.SetPageContext(*pc); err != nil {
		return nil, err
	}
	return pc, nil
}
