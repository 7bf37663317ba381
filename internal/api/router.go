package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/api/handlers"
	"github.com/sales-dashboard/web/internal/chat"
	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/middleware/ratelimit"
	"github.com/sales-dashboard/web/internal/middleware/security"
	"github.com/sales-dashboard/web/internal/middleware/validation"
	"github.com/sales-dashboard/web/internal/render"
	"github.com/sales-dashboard/web/internal/session"
	"github.com/sales-dashboard/web/pkg/logger"
)

type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
	PollSeconds    int
	WaitTimeout    time.Duration
	CookieName     string
	SecureCookie   bool
	RateLimit      int
	AccessLog      bool
}

// Deps are the long-lived services the routes call into. Cache may be nil
// when the snapshot cache is disabled.
type Deps struct {
	Sessions *session.Store
	Renderer *render.Renderer
	Chat     *chat.Service
	Runs     handlers.RunLister
	Cache    handlers.SnapshotInvalidator
	Ready    map[string]handlers.Pinger
}

// App is the Fiber app plus the background workers it owns.
type App struct {
	*fiber.App
	limiter *ratelimit.RateLimiter
}

func NewApp(cfg Config, deps Deps) *App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.BodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit,
		KeyCookie:            cfg.CookieName,
		KnownSession:         deps.Sessions.Exists,
		Logger:               logger.GetLogger(),
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins(cfg.AllowedOrigins),
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		IsDevelopment:  cfg.IsDevelopment,
	}))

	app.Get("/metrics", metrics.MetricsHandler())
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(render.Static()),
		MaxAge: 3600,
	}))

	health := handlers.NewHealthHandler(deps.Ready)
	app.Get("/api/v1/health", health.Health)
	app.Get("/api/v1/ready", health.Ready)

	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxMessageLength: chat.MaxMessageLength,
		Logger:           logger.GetLogger(),
	}))
	app.Use(deps.Sessions.Middleware(session.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.SecureCookie,
	}))

	pages := handlers.NewPageHandler(deps.Renderer, deps.Chat, cfg.PollSeconds)
	app.Get("/", pages.Root)
	app.Get("/analyze", pages.Analyze)
	app.Post("/analyze", pages.SubmitAnalyze)
	app.Get("/dashboard", pages.Dashboard)
	app.Post("/dashboard/refresh", pages.RefreshDashboard)
	app.Get("/dashboard/comments", pages.Comments)
	app.Post("/dashboard/chat", pages.SendChat)

	socket := handlers.NewChatSocketHandler(deps.Chat)
	app.Get("/ws/chat", handlers.RequireUpgrade, websocket.New(socket.HandleConnection))

	views := handlers.NewViewHandler(cfg.WaitTimeout, deps.Cache)
	chatHandler := handlers.NewChatHandler(deps.Chat)
	history := handlers.NewHistoryHandler(deps.Runs)

	api := app.Group("/api/v1")

	api.Get("/analyze", views.GetAnalyze)
	api.Post("/analyze", views.SubmitAnalyze)
	api.Get("/dashboard", views.GetDashboard)
	api.Post("/dashboard/refresh", views.RefreshDashboard)
	api.Get("/dashboard/comments", views.LoadComments)
	api.Delete("/cache/snapshots", views.InvalidateSnapshots)

	api.Post("/chat", chatHandler.SendMessage)
	api.Get("/chat/history", chatHandler.GetHistory)

	api.Get("/analyses/history", history.GetHistory)

	return &App{App: app, limiter: limiter}
}

// Shutdown stops accepting requests and the rate limiter's janitor.
func (a *App) Shutdown() error {
	a.limiter.Stop()
	return a.App.Shutdown()
}

func allowOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	joined := origins[0]
	for _, o := range origins[1:] {
		joined += ", " + o
	}
	return joined
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
