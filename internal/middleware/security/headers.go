package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// HeadersMiddleware sets the browser hardening headers for the rendered pages.
// Charts are inline SVG and the only script is served from /static.
func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"connect-src " + buildConnectSrc(cfg.AllowedOrigins) + "; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Set("Content-Security-Policy", csp)

		return c.Next()
	}
}

func buildConnectSrc(origins []string) string {
	sources := append([]string{"'self'"}, origins...)
	return strings.Join(sources, " ")
}
