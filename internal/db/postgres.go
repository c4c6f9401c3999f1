package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spacesedan/pulseai/internal/models"
)

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrInvalidMessage = errors.New("invalid role or content")
)

const DefaultChatTitle = "New Chat"

const chatSchema = `
CREATE TABLE IF NOT EXISTS chats (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL,
    title       TEXT NOT NULL DEFAULT 'New Chat',
    is_archived BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS chats_user_id_idx ON chats (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS messages (
    id         BIGSERIAL PRIMARY KEY,
    chat_id    BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    user_id    BIGINT NOT NULL,
    request_id TEXT,
    role       TEXT NOT NULL CHECK (role IN ('user', 'ai')),
    content    TEXT NOT NULL,
    risk       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE messages ADD COLUMN IF NOT EXISTS request_id TEXT;
CREATE INDEX IF NOT EXISTS messages_chat_id_idx ON messages (chat_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS messages_request_role_idx ON messages (request_id, role)
    WHERE request_id IS NOT NULL;
`

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChatStore persists chats and their messages in PostgreSQL. Every read and
// write is scoped to the owning user.
type ChatStore struct {
	db querier
}

func NewChatStore(db querier) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, chatSchema); err != nil {
		return fmt.Errorf("[DB] failed to create chat schema: %w", err)
	}
	slog.Info("[DB] Chat schema ready")
	return nil
}

func (s *ChatStore) CreateChat(ctx context.Context, userID int64, title string) (models.Chat, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultChatTitle
	}

	var chat models.Chat
	err := s.db.QueryRow(ctx, `
        INSERT INTO chats (user_id, title) VALUES ($1, $2)
        RETURNING id, user_id, title, is_archived, created_at
    `, userID, title).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.IsArchived, &chat.CreatedAt)
	if err != nil {
		return models.Chat{}, fmt.Errorf("[DB] failed to create chat: %w", err)
	}
	return chat, nil
}

// ListChats returns the user's chats, newest first.
func (s *ChatStore) ListChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, title, is_archived, created_at
        FROM chats WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.IsArchived, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *ChatStore) GetChat(ctx context.Context, userID, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRow(ctx, `
        SELECT id, user_id, title, is_archived, created_at
        FROM chats WHERE id = $1 AND user_id = $2
    `, chatID, userID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.IsArchived, &chat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, fmt.Errorf("[DB] failed to get chat: %w", err)
	}
	return chat, nil
}

// AddMessage appends msg to its chat. The role must be user or ai and the
// content must not be blank.
func (s *ChatStore) AddMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if err := ValidateMessage(msg); err != nil {
		return models.Message{}, err
	}
	if _, err := s.GetChat(ctx, msg.UserID, msg.ChatID); err != nil {
		return models.Message{}, err
	}

	stored := msg
	err := s.db.QueryRow(ctx, `
        INSERT INTO messages (chat_id, user_id, request_id, role, content, risk)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
        RETURNING id, created_at
    `, msg.ChatID, msg.UserID, msg.RequestID, string(msg.Role), msg.Content, msg.Risk).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("[DB] failed to add message: %w", err)
	}
	return stored, nil
}

// RecordExchange writes the user message and its reply in one transaction,
// creating the chat first when ex.ChatID is 0. An exchange already stored
// for ex.RequestID is returned as is, so redelivered requests write nothing.
func (s *ChatStore) RecordExchange(ctx context.Context, ex models.Exchange) (models.Chat, error) {
	if ex.RequestID != "" {
		chat, found, err := s.exchangeChat(ctx, ex.UserID, ex.RequestID)
		if err != nil || found {
			return chat, err
		}
	}

	var chat models.Chat
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		txStore := &ChatStore{db: tx}

		var err error
		if ex.ChatID == 0 {
			chat, err = txStore.CreateChat(ctx, ex.UserID, ex.Title)
		} else {
			chat, err = txStore.GetChat(ctx, ex.UserID, ex.ChatID)
		}
		if err != nil {
			return err
		}

		for _, msg := range []models.Message{
			{ChatID: chat.ID, UserID: ex.UserID, RequestID: ex.RequestID, Role: models.RoleUser, Content: ex.UserText},
			{ChatID: chat.ID, UserID: ex.UserID, RequestID: ex.RequestID, Role: models.RoleAI, Content: ex.Reply, Risk: ex.Risk},
		} {
			if _, err := txStore.AddMessage(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Chat{}, err
	}

	slog.Debug("[DB] Stored exchange",
		slog.String("request_id", ex.RequestID),
		slog.Int64("chat_id", chat.ID))
	return chat, nil
}

func (s *ChatStore) exchangeChat(ctx context.Context, userID int64, requestID string) (models.Chat, bool, error) {
	var chat models.Chat
	err := s.db.QueryRow(ctx, `
        SELECT c.id, c.user_id, c.title, c.is_archived, c.created_at
        FROM messages m JOIN chats c ON c.id = m.chat_id
        WHERE m.request_id = $1 AND m.user_id = $2
        LIMIT 1
    `, requestID, userID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.IsArchived, &chat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Chat{}, false, nil
	}
	if err != nil {
		return models.Chat{}, false, fmt.Errorf("[DB] failed to look up exchange: %w", err)
	}
	return chat, true, nil
}

// ListMessages returns the chat's messages in the order they were written.
func (s *ChatStore) ListMessages(ctx context.Context, userID, chatID int64) ([]models.Message, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
        SELECT id, chat_id, user_id, role, content, risk, created_at
        FROM messages WHERE chat_id = $1
        ORDER BY created_at, id
    `, chatID)
	if err != nil {
		return nil, fmt.Errorf("[DB] failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var (
			m    models.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &role, &m.Content, &m.Risk, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteChat removes a chat and, through the foreign key, its messages.
func (s *ChatStore) DeleteChat(ctx context.Context, userID, chatID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("[DB] failed to delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

func ValidateMessage(msg models.Message) error {
	if !msg.Role.Valid() || strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("%w: role=%q", ErrInvalidMessage, msg.Role)
	}
	return nil
}
