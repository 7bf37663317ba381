package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/pkg/circuitbreaker"
	"github.com/sales-dashboard/web/pkg/logger"
)

const (
	MaxMessageLength = 2000
	historyLimit     = 20
)

var (
	ErrEmptyMessage        = errors.New("message is required")
	ErrMessageTooLong      = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	ErrProviderUnavailable = errors.New("chat provider unavailable")
)

// Store persists the conversation of each session.
type Store interface {
	InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ChatHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}

type Service struct {
	provider Provider
	store    Store
	now      func() time.Time
}

// NewService wires a provider to an optional store; a nil store keeps no history.
func NewService(provider Provider, store Store) *Service {
	return &Service{provider: provider, store: store, now: time.Now}
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Send answers one user message and records both sides of the exchange.
// dashboardContext is passed through to providers that can use it.
func (s *Service) Send(ctx context.Context, sessionID, message, dashboardContext string) (*models.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	history := s.History(ctx, sessionID)
	s.persist(ctx, &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      models.ChatRoleUser,
		Content:   message,
		CreatedAt: s.now(),
	})

	start := time.Now()
	reply, err := s.provider.Reply(ctx, Conversation{History: history, Message: message, Context: dashboardContext})
	if err != nil {
		metrics.ChatMessages.WithLabelValues(s.provider.Name(), "error").Inc()
		logger.Warn("Chat reply failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.ChatMessages.WithLabelValues(s.provider.Name(), "success").Inc()

	answer := &models.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      models.ChatRoleAssistant,
		Content:   reply,
		Provider:  s.provider.Name(),
		CreatedAt: s.now(),
	}
	s.persist(ctx, answer)

	logger.Info("Chat reply sent",
		zap.String("provider", s.provider.Name()),
		zap.Int("reply_length", len(reply)),
		zap.Duration("latency", time.Since(start)),
	)
	return answer, nil
}

// History returns the most recent messages of a session, oldest first.
// Store failures yield an empty history.
func (s *Service) History(ctx context.Context, sessionID string) []models.ChatMessage {
	if s.store == nil {
		return nil
	}
	history, err := s.store.ChatHistory(ctx, sessionID, historyLimit)
	if err != nil {
		logger.Warn("Failed to load chat history", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	return history
}

func (s *Service) persist(ctx context.Context, msg *models.ChatMessage) {
	if s.store == nil {
		return
	}
	if err := s.store.InsertChatMessage(ctx, msg); err != nil {
		logger.Warn("Failed to store chat message", zap.String("role", msg.Role), zap.Error(err))
	}
}

// ErrorMessage is the single line shown in the chat panel for a failed send.
func ErrorMessage(err error) string {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var backendErr *analytics.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		return err.Error()
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "Request failed: chat is temporarily unavailable"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Request failed with status code %d", apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		return fmt.Sprintf("Request failed with status code %d", reqErr.HTTPStatusCode)
	case errors.As(err, &backendErr), errors.Is(err, analytics.ErrDecode), errors.Is(err, analytics.ErrUnavailable):
		return analytics.ErrorMessage(err)
	default:
		return "Request failed: " + ErrProviderUnavailable.Error()
	}
}

// SplitIntoWords breaks a reply into the chunks streamed over the websocket.
// Newlines are kept as their own chunks.
func SplitIntoWords(text string) []string {
	words := []string{}
	var current strings.Builder

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			if char == '\n' {
				words = append(words, "\n")
			}
			continue
		}
		current.WriteRune(char)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
