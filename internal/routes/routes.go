package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/peakheight/peakheight-backend/internal/config"
	"github.com/peakheight/peakheight-backend/internal/handlers"
	"github.com/peakheight/peakheight-backend/internal/middleware"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	Webhook      *handlers.WebhookHandler
	Habit        *handlers.HabitHandler
	Insight      *handlers.InsightHandler
	Food         *handlers.FoodHandler
	Community    *handlers.CommunityHandler
	Subscription *handlers.SubscriptionHandler
	Config       *handlers.RemoteConfigHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers, hub *realtime.Hub) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", h.Health.Check)

	// Remote config (public)
	api.Get("/config", h.Config.GetConfig)

	// Auth is public with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected auth routes, applied per route so public ones stay open
	api.Post("/auth/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), h.Auth.DeleteAccount)

	// Webhooks use shared-secret auth, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/revenuecat", h.Webhook.HandleRevenueCat)

	// Protected domain routes
	protected := api.Group("", middleware.JWTProtected(cfg))

	protected.Get("/me", h.Auth.Me)
	protected.Put("/me", h.Auth.UpdateProfile)

	protected.Post("/habits", h.Habit.LogHabit)
	protected.Get("/habits", h.Habit.GetLogs)
	protected.Get("/habits/:habitType/streak", h.Habit.GetStreak)
	protected.Get("/habits/:habitType/calendar", h.Habit.GetCalendar)

	protected.Post("/insights", h.Insight.Generate)
	protected.Get("/insights", h.Insight.List)

	protected.Get("/food/products/:barcode", h.Food.Lookup)
	protected.Post("/food/scans", h.Food.Scan)
	protected.Get("/food/scans", h.Food.Scans)
	protected.Get("/food/summary", h.Food.Summary)

	protected.Post("/posts", h.Community.CreatePost)
	protected.Get("/posts", h.Community.Feed)
	protected.Post("/posts/:id/like", h.Community.Like)
	protected.Delete("/posts/:id", h.Community.DeletePost)

	protected.Get("/subscription", h.Subscription.Status)
	protected.Post("/subscription/trial", h.Subscription.StartTrial)

	// Admin config management
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Put("/config/:key", h.Config.SetConfigKey)
	admin.Delete("/config/:key", h.Config.DeleteConfigKey)

	// Realtime channel streams upgrade outside the API limiter
	app.Use("/realtime/:channel", middleware.JWTProtected(cfg), realtime.Upgrade)
	app.Get("/realtime/:channel", realtime.Handler(hub))
}
