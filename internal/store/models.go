package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist or is not visible to the owner.
var ErrNotFound = errors.New("not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

type Chat struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        string    `json:"id"` // UUID
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Model     *string   `json:"model,omitempty"` // display name, assistant messages only
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage is the input of AppendMessage.
type NewMessage struct {
	ChatID  string
	Role    Role
	Content string
	Model   *string
}

func (m NewMessage) validate() error {
	if m.ChatID == "" {
		return errors.New("chat id is required")
	}
	if !m.Role.Valid() {
		return errors.New("invalid role " + string(m.Role))
	}
	return nil
}
