package core

import (
	"context"

	"gwi.com/chat-agent/internal/store"
)

// MessageStore is the boundary to the persistence collaborator. Chat-scoped operations carry
// the owner so the store can enforce row-level access.
type MessageStore interface {
	CreateChat(ctx context.Context, ownerID int64, title string) (*store.Chat, error)
	ListChats(ctx context.Context, ownerID int64) ([]store.Chat, error)
	DeleteChat(ctx context.Context, ownerID int64, chatID string) error
	ListMessages(ctx context.Context, ownerID int64, chatID string) ([]store.Message, error)
	AppendMessage(ctx context.Context, ownerID int64, msg store.NewMessage) (*store.Message, error)
	RenameChat(ctx context.Context, ownerID int64, chatID, title string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, externalUserID, passwordHash string) (*store.User, error)
	GetUserByExternalID(ctx context.Context, externalUserID string) (*store.User, error)
	GetOrCreateUser(ctx context.Context, externalUserID string) (*store.User, error)
}

// PageAnalyzer turns a URL into page context.
type PageAnalyzer interface {
	Analyze(ctx context.Context, rawURL string) (*PageContext, error)
}
