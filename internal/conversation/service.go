// Package conversation drives the router for a user message and keeps the
// surrounding chat state: titles, chat messages and analysis history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/pulseai/internal/analysis"
	"github.com/spacesedan/pulseai/internal/models"
)

var (
	ErrInvalidInput   = errors.New("text is required")
	ErrNoChatStore    = errors.New("chat store not configured")
	ErrNoHistoryStore = errors.New("history store not configured")
)

type Router interface {
	Route(ctx context.Context, userName, text string) (models.AnalysisResponse, error)
}

// ChatStore persists chats. RecordExchange must write a whole exchange or
// nothing, and must not write twice for the same RequestID.
type ChatStore interface {
	RecordExchange(ctx context.Context, ex models.Exchange) (models.Chat, error)
	ListChats(ctx context.Context, userID int64) ([]models.Chat, error)
	ListMessages(ctx context.Context, userID, chatID int64) ([]models.Message, error)
	DeleteChat(ctx context.Context, userID, chatID int64) error
}

type HistoryReader interface {
	ListByUser(ctx context.Context, userID int64) ([]models.AnalysisRecord, error)
}

// Deps wires a Service. Chats and History are optional; the matching
// operations fail with ErrNoChatStore / ErrNoHistoryStore without them.
type Deps struct {
	Router      Router
	Titles      *analysis.TitleGenerator
	UseAITitles bool
	Chats       ChatStore
	History     HistoryReader
}

type Service struct {
	router      Router
	titles      *analysis.TitleGenerator
	useAITitles bool
	chats       ChatStore
	history     HistoryReader
	now         func() time.Time
}

func NewService(deps Deps) *Service {
	titles := deps.Titles
	if titles == nil {
		titles = analysis.NewTitleGenerator(nil)
	}
	return &Service{
		router:      deps.Router,
		titles:      titles,
		useAITitles: deps.UseAITitles,
		chats:       deps.Chats,
		history:     deps.History,
		now:         time.Now,
	}
}

// Analyze routes req and, when a chat store is configured, records the
// exchange in the request's chat. A request without a chat starts a new one
// titled after its text. Nothing is written if routing fails.
func (s *Service) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisEvent, error) {
	if strings.TrimSpace(req.Text) == "" {
		return models.AnalysisEvent{}, ErrInvalidInput
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	resp, err := s.router.Route(ctx, req.UserName, req.Text)
	if err != nil {
		slog.Error("[ConversationService] Routing failed",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()))
		return models.AnalysisEvent{}, fmt.Errorf("[ConversationService] request %s: %w", req.RequestID, err)
	}

	event := models.AnalysisEvent{
		RequestID: req.RequestID,
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		Text:      req.Text,
		Response:  resp,
		CreatedAt: s.now().UTC(),
	}

	if s.chats != nil {
		if err := s.recordExchange(ctx, &event); err != nil {
			return models.AnalysisEvent{}, err
		}
	}

	slog.Info("[ConversationService] Request handled",
		slog.String("request_id", event.RequestID),
		slog.String("kind", string(resp.Kind())),
		slog.Int64("chat_id", event.ChatID))
	return event, nil
}

func (s *Service) recordExchange(ctx context.Context, event *models.AnalysisEvent) error {
	content, risk := replyOf(event.Response)
	ex := models.Exchange{
		RequestID: event.RequestID,
		UserID:    event.UserID,
		ChatID:    event.ChatID,
		UserText:  event.Text,
		Reply:     content,
		Risk:      risk,
	}
	if ex.ChatID == 0 {
		ex.Title = s.titles.Generate(ctx, event.Text, s.useAITitles)
	}

	chat, err := s.chats.RecordExchange(ctx, ex)
	if err != nil {
		return fmt.Errorf("[ConversationService] failed to store exchange: %w", err)
	}
	if event.ChatID == 0 {
		event.ChatTitle = chat.Title
	}
	event.ChatID = chat.ID
	return nil
}

// replyOf returns the text shown to the user and its risk flag.
func replyOf(resp models.AnalysisResponse) (string, bool) {
	switch r := resp.(type) {
	case *models.HumanResponse:
		return r.Text, false
	case *models.AnalysisResult:
		return r.Feedback, r.Risk
	default:
		return "", false
	}
}

// History returns the user's analysis records, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]models.AnalysisRecord, error) {
	if s.history == nil {
		return nil, ErrNoHistoryStore
	}
	return s.history.ListByUser(ctx, userID)
}

func (s *Service) Chats(ctx context.Context, userID int64) ([]models.Chat, error) {
	if s.chats == nil {
		return nil, ErrNoChatStore
	}
	return s.chats.ListChats(ctx, userID)
}

func (s *Service) Messages(ctx context.Context, userID, chatID int64) ([]models.Message, error) {
	if s.chats == nil {
		return nil, ErrNoChatStore
	}
	return s.chats.ListMessages(ctx, userID, chatID)
}

func (s *Service) DeleteChat(ctx context.Context, userID, chatID int64) error {
	if s.chats == nil {
		return ErrNoChatStore
	}
	return s.chats.DeleteChat(ctx, userID, chatID)
}
