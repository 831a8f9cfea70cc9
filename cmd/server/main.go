package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/peakheight/peakheight-backend/internal/config"
	"github.com/peakheight/peakheight-backend/internal/database"
	"github.com/peakheight/peakheight-backend/internal/handlers"
	"github.com/peakheight/peakheight-backend/internal/logging"
	"github.com/peakheight/peakheight-backend/internal/middleware"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"github.com/peakheight/peakheight-backend/internal/routes"
	"github.com/peakheight/peakheight-backend/internal/services"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Retention sweeps: system logs and rate-limit usage rows
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cleanupDone)

	// Realtime event hub
	hub := realtime.NewHub()

	// Services
	authService := services.NewAuthService(db, cfg)
	subscriptionService := services.NewSubscriptionService(db)
	rateLimitService := services.NewRateLimitService(db, subscriptionService, cfg.RateLimitFailOpen)
	habitService := services.NewHabitService(db, rateLimitService, hub)
	aiClient := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel, cfg.AITimeout)
	insightService := services.NewInsightService(db, aiClient, rateLimitService, subscriptionService, hub,
		cfg.ModerationRejectThreshold, cfg.ModerationFlagThreshold)
	foodClient := services.NewFoodClient(cfg.FoodAPIURL, cfg.FoodAPITimeout)
	foodService := services.NewFoodService(db, foodClient, rateLimitService, hub)
	communityService := services.NewCommunityService(db, rateLimitService, insightService, hub)

	// Handlers
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(db),
		Webhook:      handlers.NewWebhookHandler(subscriptionService, cfg.RevenueCatWebhookAuth),
		Habit:        handlers.NewHabitHandler(habitService),
		Insight:      handlers.NewInsightHandler(insightService),
		Food:         handlers.NewFoodHandler(foodService, foodClient),
		Community:    handlers.NewCommunityHandler(communityService),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
		Config:       handlers.NewRemoteConfigHandler(db),
	}

	// Seed default remote config values
	if err := h.Config.SeedDefaults(); err != nil {
		slog.Error("remote config seed failed", "error", err)
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, db, h, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Error details are only exposed for client errors (4xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
