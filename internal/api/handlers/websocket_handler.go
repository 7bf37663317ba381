package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/chat"
	"github.com/sales-dashboard/web/internal/middleware/validation"
	"github.com/sales-dashboard/web/internal/session"
	"github.com/sales-dashboard/web/internal/view"
	"github.com/sales-dashboard/web/pkg/logger"
)

// ChatSocketHandler streams chat replies word by word. The session is the
// one resolved for the upgrade request.
type ChatSocketHandler struct {
	chat *chat.Service
}

func NewChatSocketHandler(chatService *chat.Service) *ChatSocketHandler {
	return &ChatSocketHandler{
		chat: chatService,
	}
}

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *ChatSocketHandler) HandleConnection(c *websocket.Conn) {
	sess, _ := c.Locals(session.LocalsKey).(*session.Session)
	if sess == nil {
		if err := h.sendError(c, "Session unavailable"); err != nil {
			logger.Warn("Failed to send WebSocket error", zap.Error(err))
		}
		c.Close()
		return
	}

	logger.Info("WebSocket connection established", zap.String("session_id", sess.ID))

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("session_id", sess.ID))
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "message" {
			continue
		}

		if reason := rejectSocketMessage(msg.Content); reason != "" {
			logger.Warn("Rejected WebSocket chat message",
				zap.String("session_id", sess.ID),
				zap.String("reason", reason),
			)
			if err := h.sendError(c, reason); err != nil {
				logger.Warn("Failed to send WebSocket error", zap.Error(err))
				break
			}
			continue
		}

		if err := h.streamReply(c, sess, msg.Content); err != nil {
			logger.Warn("Failed to stream chat reply", zap.Error(err))
			break
		}
	}
}

func (h *ChatSocketHandler) streamReply(c *websocket.Conn, sess *session.Session, message string) error {
	start := time.Now()

	if err := h.sendChunk(c, "status", "Thinking..."); err != nil {
		return err
	}

	answer, err := h.chat.Send(context.Background(), sess.ID, message, view.ChatContext(sess.Dashboard.State()))
	if err != nil {
		return h.sendError(c, chat.ErrorMessage(err))
	}

	words := chat.SplitIntoWords(answer.Content)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" && words[i+1] != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": answer.ID,
		"provider":   answer.Provider,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (h *ChatSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *ChatSocketHandler) sendError(c *websocket.Conn, errorMsg string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

// rejectSocketMessage holds socket frames to the body rules the HTTP chat
// routes get from the validation middleware. Empty means accepted.
func rejectSocketMessage(content string) string {
	if validation.ContainsXSS(content) {
		return validation.InvalidMessageContent
	}
	return ""
}
