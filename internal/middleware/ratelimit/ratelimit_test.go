package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, perMinute int) *fiber.App {
	t.Helper()
	known := map[string]bool{"a": true, "b": true}
	rl := New(Config{
		MaxRequestsPerMinute: perMinute,
		KeyCookie:            "sid",
		KnownSession:         func(id string) bool { return known[id] },
	})
	t.Cleanup(rl.Stop)

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func get(t *testing.T, app *fiber.App, sid string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestLimitPerSession(t *testing.T) {
	app := newApp(t, 2)

	assert.Equal(t, fiber.StatusOK, get(t, app, "a"))
	assert.Equal(t, fiber.StatusOK, get(t, app, "a"))
	assert.Equal(t, fiber.StatusTooManyRequests, get(t, app, "a"))

	assert.Equal(t, fiber.StatusOK, get(t, app, "b"))
}

func TestUnknownCookiesShareTheIPBucket(t *testing.T) {
	app := newApp(t, 2)

	allowed := 0
	for i := 0; i < 20; i++ {
		if get(t, app, fmt.Sprintf("forged-%d", i)) == fiber.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
	assert.Equal(t, fiber.StatusTooManyRequests, get(t, app, ""))

	// a session the store knows keeps its own bucket
	assert.Equal(t, fiber.StatusOK, get(t, app, "a"))
}

func TestCookieIgnoredWithoutSessionCheck(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, KeyCookie: "sid"})
	t.Cleanup(rl.Stop)
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	assert.Equal(t, fiber.StatusOK, get(t, app, "x"))
	assert.Equal(t, fiber.StatusTooManyRequests, get(t, app, "y"))
}

func TestEvictIdle(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 5})
	defer rl.Stop()

	require.True(t, rl.allow("k"))
	assert.Equal(t, 0, rl.evictIdle(time.Hour))

	rl.buckets["k"].lastRefill = time.Now().Add(-2 * time.Hour)
	assert.Equal(t, 1, rl.evictIdle(time.Hour))
	assert.Empty(t, rl.buckets)
}
