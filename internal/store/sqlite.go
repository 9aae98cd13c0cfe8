package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes are serialized by SQLite anyway and ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        model TEXT,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_chats_user_updated ON chats (user_id, updated_at DESC);
    CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, "SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (external_user_id, password_hash, created_at) VALUES (?, ?, ?)", externalUserID, passwordHash, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(ctx, id)
}

// GetOrCreateUser is used by clients without a login step (the terminal client).
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, externalUserID string) (*User, error) {
	user, err := s.GetUserByExternalID(ctx, externalUserID)
	if err != nil || user != nil {
		return user, err
	}
	return s.CreateUser(ctx, externalUserID, "")
}

func (s *SQLiteStore) getUserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, "SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Chat methods
func (s *SQLiteStore) CreateChat(ctx context.Context, userID int64, title string) (*Chat, error) {
	chatID := uuid.NewString()
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chat insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	_, err = stmt.ExecContext(ctx, chatID, userID, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	return &Chat{ID: chatID, UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) ListChats(ctx context.Context, userID int64) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, title, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return chats, nil
}

// DeleteChat removes a chat and its messages. Missing or foreign chats are not an error.
func (s *SQLiteStore) DeleteChat(ctx context.Context, userID int64, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin chat delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id IN (SELECT id FROM chats WHERE id = ? AND user_id = ?)", chatID, userID); err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chat delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RenameChat(ctx context.Context, userID int64, chatID, title string) error {
	stmt, err := s.db.PrepareContext(ctx, "UPDATE chats SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare chat title update: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, title, s.now(), chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute chat title update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat %s, title not updated: %w", chatID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) chatOwned(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, userID int64, chatID string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM chats WHERE id = ? AND user_id = ?", chatID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to verify chat: %w", err)
	}
	return nil
}

// Message methods
func (s *SQLiteStore) AppendMessage(ctx context.Context, userID int64, in NewMessage) (*Message, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin message insert: %w", err)
	}
	defer tx.Rollback()

	if err := s.chatOwned(ctx, tx, userID, in.ChatID); err != nil {
		return nil, err
	}

	msg := &Message{
		ID:        uuid.NewString(),
		ChatID:    in.ChatID,
		Role:      in.Role,
		Content:   in.Content,
		Model:     in.Model,
		CreatedAt: s.now(),
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO messages (id, chat_id, role, content, model, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, string(msg.Role), msg.Content, msg.Model, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute message insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", msg.CreatedAt, msg.ChatID); err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message insert: %w", err)
	}
	return msg, nil
}

// ListMessages returns the chat's messages oldest first; equal timestamps keep insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID int64, chatID string) ([]Message, error) {
	if err := s.chatOwned(ctx, s.db, userID, chatID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, chat_id, role, content, model, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC", chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var role string
		var model sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &model, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Role = Role(role)
		if model.Valid {
			msg.Model = &model.String
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
