package models

import "time"

type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleAI   MessageRole = "ai"
)

func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAI
}

type Chat struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
}

type Message struct {
	ID        int64       `json:"id"`
	ChatID    int64       `json:"chat_id"`
	UserID    int64       `json:"user_id"`
	RequestID string      `json:"request_id,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Risk      bool        `json:"risk"`
	CreatedAt time.Time   `json:"created_at"`
}

// Exchange is a user message and its reply, stored together. ChatID 0
// starts a new chat named Title. RequestID makes the write idempotent.
type Exchange struct {
	RequestID string
	UserID    int64
	ChatID    int64
	Title     string
	UserText  string
	Reply     string
	Risk      bool
}
