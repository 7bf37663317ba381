package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/pkg/logger"
)

const maxHistoryLimit = 100

type HistoryHandler struct {
	runs RunLister
}

func NewHistoryHandler(runs RunLister) *HistoryHandler {
	return &HistoryHandler{
		runs: runs,
	}
}

// GetHistory lists the caller's recorded analyses, or everyone's with scope=all.
func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > maxHistoryLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be between 1 and 100",
		})
	}

	sessionID := sess.ID
	switch c.Query("scope", "session") {
	case "session":
	case "all":
		sessionID = ""
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scope must be session or all",
		})
	}

	runs, err := h.runs.ListRuns(c.Context(), sessionID, limit)
	if err != nil {
		logger.Error("Failed to list analysis runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}
