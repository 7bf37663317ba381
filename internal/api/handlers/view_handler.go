package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/view"
	"github.com/sales-dashboard/web/pkg/logger"
)

// ViewHandler exposes the same per-session view state as JSON. Actions
// return 202 with the loading state, or 200 with the settled state when
// called with ?wait=true.
type ViewHandler struct {
	waitTimeout time.Duration
	invalidator SnapshotInvalidator
}

func NewViewHandler(waitTimeout time.Duration, invalidator SnapshotInvalidator) *ViewHandler {
	return &ViewHandler{
		waitTimeout: waitTimeout,
		invalidator: invalidator,
	}
}

func (h *ViewHandler) GetAnalyze(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(sess.Analyze.State())
}

func (h *ViewHandler) SubmitAnalyze(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	var values view.FormValues
	if err := c.BodyParser(&values); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	form, err := values.Form()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": formMessage(err),
		})
	}

	done, err := sess.Analyze.Submit(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": formMessage(err),
		})
	}

	return h.respond(c, done, func() any { return sess.Analyze.State() })
}

func (h *ViewHandler) GetDashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	done := sess.Dashboard.Mount()
	if done == nil {
		return c.JSON(sess.Dashboard.State())
	}
	return h.respond(c, done, func() any { return sess.Dashboard.State() })
}

func (h *ViewHandler) RefreshDashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	done := sess.Dashboard.Refresh()
	return h.respond(c, done, func() any { return sess.Dashboard.State() })
}

func (h *ViewHandler) LoadComments(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	done, err := sess.Dashboard.LoadComments(c.Query("sentiment"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return h.respond(c, done, func() any { return sess.Dashboard.State().Comments })
}

// InvalidateSnapshots empties the shared snapshot cache.
func (h *ViewHandler) InvalidateSnapshots(c *fiber.Ctx) error {
	if h.invalidator == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Snapshot cache is disabled",
		})
	}

	deleted, err := h.invalidator.InvalidateSnapshots(c.Context())
	if err != nil {
		logger.Error("Failed to invalidate snapshot cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invalidate snapshot cache",
		})
	}

	return c.JSON(fiber.Map{
		"deleted": deleted,
	})
}

func (h *ViewHandler) respond(c *fiber.Ctx, done <-chan struct{}, state func() any) error {
	if c.QueryBool("wait") && waitFor(done, h.waitTimeout) {
		return c.JSON(state())
	}
	return c.Status(fiber.StatusAccepted).JSON(state())
}
