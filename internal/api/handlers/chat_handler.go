package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/chat"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/internal/view"
	"github.com/sales-dashboard/web/pkg/logger"
)

type ChatHandler struct {
	chat *chat.Service
}

func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{
		chat: chatService,
	}
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.chat.Send(c.Context(), sess.ID, req.Message, view.ChatContext(sess.Dashboard.State()))
	if err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error": chat.ErrorMessage(err),
		})
	}

	return c.JSON(fiber.Map{
		"reply":      answer.Content,
		"message_id": answer.ID,
		"provider":   answer.Provider,
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	messages := h.chat.History(c.Context(), sess.ID)
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return c.JSON(fiber.Map{
		"messages": messages,
	})
}
