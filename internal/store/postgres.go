package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gwi.com/chat-agent/internal/observability"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// PostgresStore is the remote relational backend. Row ownership is enforced in every query.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	logger := observability.WithFields("component", "postgres")

	// Retry connection (Postgres may not be ready yet in Docker)
	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gave up connecting to postgres: %w", ctx.Err())
			case <-time.After(connectBackoff):
			}
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			logger.Warn("DB connect attempt failed", "attempt", attempt, "max_attempts", connectAttempts, "error", err)
			continue
		}
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			err = pingErr
			logger.Warn("DB ping attempt failed", "attempt", attempt, "max_attempts", connectAttempts, "error", pingErr)
			continue
		}

		s := &PostgresStore{pool: pool}
		if err := s.initSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return s, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", connectAttempts, err)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			external_user_id TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL REFERENCES chats (id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			model TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_chats_user_updated ON chats (user_id, updated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, seq);
	`)
	return err
}

func (s *PostgresStore) GetUserByExternalID(ctx context.Context, externalUserID string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = $1
	`, externalUserID).Scan(&u.ID, &u.ExternalUserID, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, externalUserID, passwordHash string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (external_user_id, password_hash) VALUES ($1, $2)
		RETURNING id, external_user_id, password_hash, created_at
	`, externalUserID, passwordHash).Scan(&u.ID, &u.ExternalUserID, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetOrCreateUser(ctx context.Context, externalUserID string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (external_user_id, password_hash) VALUES ($1, '')
		ON CONFLICT (external_user_id) DO UPDATE SET external_user_id = EXCLUDED.external_user_id
		RETURNING id, external_user_id, password_hash, created_at
	`, externalUserID).Scan(&u.ID, &u.ExternalUserID, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateChat(ctx context.Context, userID int64, title string) (*Chat, error) {
	c := Chat{ID: uuid.NewString(), UserID: userID, Title: title}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chats (id, user_id, title) VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, c.ID, userID, title).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListChats(ctx context.Context, userID int64) ([]Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return chats, nil
}

// DeleteChat relies on ON DELETE CASCADE for messages.
func (s *PostgresStore) DeleteChat(ctx context.Context, userID int64, chatID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

func (s *PostgresStore) RenameChat(ctx context.Context, userID int64, chatID, title string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chats SET title = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3
	`, title, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat %s, title not updated: %w", chatID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, userID int64, in NewMessage) (*Message, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	msg := &Message{ID: uuid.NewString(), ChatID: in.ChatID, Role: in.Role, Content: in.Content, Model: in.Model}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Insert only when the chat belongs to the user; no row back means not found.
		err := tx.QueryRow(ctx, `
			INSERT INTO messages (id, chat_id, role, content, model)
			SELECT $1, c.id, $3, $4, $5 FROM chats c WHERE c.id = $2 AND c.user_id = $6
			RETURNING created_at
		`, msg.ID, msg.ChatID, string(msg.Role), msg.Content, msg.Model, userID).Scan(&msg.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("chat %s: %w", in.ChatID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE chats SET updated_at = $1 WHERE id = $2`, msg.CreatedAt, msg.ChatID)
		if err != nil {
			return fmt.Errorf("failed to touch chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, userID int64, chatID string) ([]Message, error) {
	var owned bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1 AND user_id = $2)`, chatID, userID).Scan(&owned)
	if err != nil {
		return nil, fmt.Errorf("failed to verify chat: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, role, content, model, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.Model, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Role = Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}
