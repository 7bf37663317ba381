package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	xssPattern  = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// InvalidMessageContent is the error shown for a rejected chat message.
const InvalidMessageContent = "Invalid message content"

type Config struct {
	MaxMessageLength    int
	MaxFieldLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed request bodies before they reach a handler.
// Field-level rules that depend on view state stay in the view package.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 2000
	}
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 120
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		path := c.Path()

		if strings.HasSuffix(path, "/chat") {
			var req struct {
				Message string `json:"message" form:"message"`
			}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
				})
			}

			if len([]rune(req.Message)) > cfg.MaxMessageLength {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Message exceeds maximum length",
				})
			}

			if ContainsXSS(req.Message) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("path", path),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": InvalidMessageContent,
				})
			}
		}

		if strings.HasSuffix(path, "/analyze") {
			var req struct {
				ProductName string `json:"product_name" form:"product_name"`
				BrandName   string `json:"brand_name" form:"brand_name"`
				StartDate   string `json:"start_date" form:"start_date"`
				EndDate     string `json:"end_date" form:"end_date"`
			}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
				})
			}

			if len(req.ProductName) > cfg.MaxFieldLength*4 || len(req.BrandName) > cfg.MaxFieldLength*4 {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Field exceeds maximum length",
				})
			}

			for _, d := range []string{req.StartDate, req.EndDate} {
				if d != "" && !datePattern.MatchString(strings.TrimSpace(d)) {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Dates must be YYYY-MM-DD",
					})
				}
			}
		}

		return c.Next()
	}
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// ContainsXSS reports whether input carries markup or handlers that could
// run script when echoed back. Every chat entry point rejects such messages.
func ContainsXSS(input string) bool {
	return xssPattern.MatchString(input)
}
