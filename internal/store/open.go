package store

import (
	"context"
	"fmt"
)

// Store is implemented by every backend.
type Store interface {
	GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error)
	CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error)
	GetOrCreateUser(ctx context.Context, externalUserID string) (*User, error)

	CreateChat(ctx context.Context, userID int64, title string) (*Chat, error)
	ListChats(ctx context.Context, userID int64) ([]Chat, error)
	DeleteChat(ctx context.Context, userID int64, chatID string) error
	RenameChat(ctx context.Context, userID int64, chatID, title string) error

	AppendMessage(ctx context.Context, userID int64, in NewMessage) (*Message, error)
	ListMessages(ctx context.Context, userID int64, chatID string) ([]Message, error)

	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Open connects to the named backend: "sqlite" (dsn is a file path), "postgres" (dsn is a URL) or "memory".
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case "sqlite":
		return NewSQLiteStore(dsn)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
