package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/chat"
	"github.com/sales-dashboard/web/internal/render"
	"github.com/sales-dashboard/web/internal/session"
	"github.com/sales-dashboard/web/internal/view"
	"github.com/sales-dashboard/web/pkg/logger"
)

// PageHandler serves the two HTML screens. Every action that starts a fetch
// cycle answers with a redirect; the page then polls while loading.
type PageHandler struct {
	renderer    *render.Renderer
	chat        *chat.Service
	pollSeconds int
}

func NewPageHandler(renderer *render.Renderer, chatService *chat.Service, pollSeconds int) *PageHandler {
	return &PageHandler{
		renderer:    renderer,
		chat:        chatService,
		pollSeconds: pollSeconds,
	}
}

func (h *PageHandler) Root(c *fiber.Ctx) error {
	return c.Redirect("/dashboard", fiber.StatusFound)
}

func (h *PageHandler) Analyze(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.renderAnalyze(c, view.BuildAnalyzePage(sess.Analyze.State(), nil, "", h.pollSeconds))
}

func (h *PageHandler) SubmitAnalyze(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	var values view.FormValues
	if err := c.BodyParser(&values); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}

	form, err := values.Form()
	if err == nil {
		_, err = sess.Analyze.Submit(form)
	}
	if err != nil {
		page := view.BuildAnalyzePage(sess.Analyze.State(), &values, formMessage(err), h.pollSeconds)
		c.Status(fiber.StatusUnprocessableEntity)
		return h.renderAnalyze(c, page)
	}

	logger.Debug("Analysis submitted",
		zap.String("session_id", sess.ID),
		zap.String("product", form.ProductName),
	)
	return c.Redirect("/analyze", fiber.StatusSeeOther)
}

func (h *PageHandler) Dashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	sess.Dashboard.Mount()
	return h.renderDashboard(c, sess, "")
}

func (h *PageHandler) RefreshDashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	sess.Dashboard.Refresh()
	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

func (h *PageHandler) Comments(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if _, err := sess.Dashboard.LoadComments(c.Query("sentiment")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Redirect("/dashboard#comments", fiber.StatusSeeOther)
}

// SendChat answers synchronously for browsers without the websocket.
func (h *PageHandler) SendChat(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	message := c.FormValue("message")
	if _, err := h.chat.Send(c.Context(), sess.ID, message, view.ChatContext(sess.Dashboard.State())); err != nil {
		status := fiber.StatusBadGateway
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMessageTooLong) {
			status = fiber.StatusBadRequest
		}
		c.Status(status)
		return h.renderDashboard(c, sess, chat.ErrorMessage(err))
	}
	return c.Redirect("/dashboard#chat", fiber.StatusSeeOther)
}

func (h *PageHandler) renderAnalyze(c *fiber.Ctx, page view.AnalyzePage) error {
	c.Type("html", "utf-8")
	if err := h.renderer.Analyze(c, page); err != nil {
		logger.Error("Failed to render analyze page", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	return nil
}

func (h *PageHandler) renderDashboard(c *fiber.Ctx, sess *session.Session, chatError string) error {
	page := view.BuildDashboardPage(sess.Dashboard.State(), h.pollSeconds)
	panel := render.ChatPanel{
		Provider:  h.chat.ProviderName(),
		Messages:  h.chat.History(c.Context(), sess.ID),
		Error:     chatError,
		MaxLength: chat.MaxMessageLength,
	}

	c.Type("html", "utf-8")
	if err := h.renderer.Dashboard(c, page, panel); err != nil {
		logger.Error("Failed to render dashboard page", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	return nil
}
