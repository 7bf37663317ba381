package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/api"
	"github.com/sales-dashboard/web/internal/api/handlers"
	"github.com/sales-dashboard/web/internal/cache/redis"
	"github.com/sales-dashboard/web/internal/chat"
	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/render"
	"github.com/sales-dashboard/web/internal/session"
	"github.com/sales-dashboard/web/internal/storage/sqlite"
	"github.com/sales-dashboard/web/internal/view"
	"github.com/sales-dashboard/web/pkg/config"
	appLogger "github.com/sales-dashboard/web/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting sales dashboard",
		zap.String("analytics", cfg.Analytics.BaseURL),
		zap.String("chat_provider", cfg.Chat.Provider),
	)

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	ready := map[string]handlers.Pinger{"sqlite": sqliteClient}

	var (
		snapshotCache view.SnapshotCache
		invalidator   handlers.SnapshotInvalidator
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		snapshotCache = redisClient
		invalidator = redisClient
		ready["redis"] = redisClient
	}

	analyticsClient := analytics.NewClient(
		cfg.Analytics.BaseURL,
		time.Duration(cfg.Analytics.TimeoutSec)*time.Second,
		cfg.Analytics.MaxAttempts,
	)

	var provider chat.Provider
	switch cfg.Chat.Provider {
	case chat.ProviderOpenAI:
		provider = chat.NewOpenAIProvider(chat.OpenAIConfig{
			APIKey:      cfg.Chat.APIKey,
			BaseURL:     cfg.Chat.BaseURL,
			Model:       cfg.Chat.Model,
			Temperature: cfg.Chat.Temperature,
			MaxTokens:   cfg.Chat.MaxTokens,
			Timeout:     time.Duration(cfg.Chat.TimeoutSec) * time.Second,
		})
	default:
		provider = chat.NewBackendProvider(analyticsClient)
	}
	chatService := chat.NewService(provider, sqliteClient)

	selection := analytics.Selection{
		ProductName: cfg.Dashboard.ProductName,
		BrandName:   cfg.Dashboard.BrandName,
		Platform:    cfg.Dashboard.Platform,
	}

	sessions := session.NewStore(session.Config{
		IdleTimeout: time.Duration(cfg.Session.IdleMinute) * time.Minute,
		Logger:      appLogger.GetLogger(),
	}, func(id string) *session.Session {
		return &session.Session{
			ID: id,
			Analyze: view.NewAnalyzeView(analyticsClient, view.AnalyzeOptions{
				ProductName: cfg.Dashboard.ProductName,
				BrandName:   cfg.Dashboard.BrandName,
				SessionID:   id,
				Recorder:    sqliteClient,
			}),
			Dashboard: view.NewDashboardView(analyticsClient, view.DashboardOptions{
				Selection: selection,
				Cache:     snapshotCache,
			}),
		}
	})
	defer sessions.Stop()

	renderer, err := render.New()
	if err != nil {
		appLogger.Fatal("Failed to parse templates", zap.Error(err))
	}

	app := api.NewApp(api.Config{
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.IsDevelopment,
		PollSeconds:    cfg.Dashboard.PollSeconds,
		WaitTimeout:    cfg.Analytics.CycleTimeout(),
		CookieName:     cfg.Session.CookieName,
		SecureCookie:   cfg.Session.SecureCookie,
		RateLimit:      cfg.RateLimit.MaxRequestsPerMinute,
		AccessLog:      true,
	}, api.Deps{
		Sessions: sessions,
		Renderer: renderer,
		Chat:     chatService,
		Runs:     sqliteClient,
		Cache:    invalidator,
		Ready:    ready,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
