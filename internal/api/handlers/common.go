package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sales-dashboard/web/internal/session"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/internal/view"
)

// RunLister reads recorded Analyze submissions.
type RunLister interface {
	ListRuns(ctx context.Context, sessionID string, limit int) ([]models.AnalysisRun, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type SnapshotInvalidator interface {
	InvalidateSnapshots(ctx context.Context) (int, error)
}

var errNoSession = fiber.NewError(fiber.StatusInternalServerError, "session unavailable")

func currentSession(c *fiber.Ctx) (*session.Session, error) {
	sess := session.FromContext(c)
	if sess == nil {
		return nil, errNoSession
	}
	return sess, nil
}

// waitFor blocks until done closes or timeout passes. A nil channel means
// there is nothing to wait for.
func waitFor(done <-chan struct{}, timeout time.Duration) bool {
	if done == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// formMessage strips the sentinel prefix from a form validation error.
func formMessage(err error) string {
	if errors.Is(err, view.ErrInvalidForm) {
		return strings.TrimPrefix(err.Error(), view.ErrInvalidForm.Error()+": ")
	}
	return err.Error()
}
