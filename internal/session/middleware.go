package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// LocalsKey is where Middleware stores the *Session in the request locals.
const LocalsKey = "session"

type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Middleware resolves the session cookie, issuing a new one when the visitor
// has none or theirs expired.
func (s *Store) Middleware(cfg CookieConfig) fiber.Handler {
	if cfg.Name == "" {
		cfg.Name = "sd_session"
	}

	return func(c *fiber.Ctx) error {
		sess, created := s.Get(c.Cookies(cfg.Name))
		if created {
			cookie := &fiber.Cookie{
				Name:     cfg.Name,
				Value:    sess.ID,
				Path:     "/",
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			}
			if cfg.MaxAge > 0 {
				cookie.MaxAge = int(cfg.MaxAge.Seconds())
			}
			c.Cookie(cookie)
		}

		c.Locals(LocalsKey, sess)
		return c.Next()
	}
}

// FromContext returns the session resolved by Middleware, or nil.
func FromContext(c *fiber.Ctx) *Session {
	sess, _ := c.Locals(LocalsKey).(*Session)
	return sess
}
