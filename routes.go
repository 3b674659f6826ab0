package main

import (
	"context"
	"strings"
	"time"

	fiberws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "crmhub/config"
	"crmhub/handlers"
	"crmhub/metrics"
	"crmhub/middleware"
	"crmhub/models"
	"crmhub/realtime"
)

// setupRoutes configures all API routes and middleware for the application
func setupRoutes(app *fiber.App, db *pgxpool.Pool, rdb *redis.Client, hub *realtime.Hub, config *appconfig.Config, startTime time.Time) {
	// Security middleware
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge: func() int {
			if config.Environment == "production" {
				return 31536000
			}
			return 0
		}(),
		HSTSPreloadEnabled: config.Environment == "production",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// CORS configuration
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(config.AllowedOrigins, ","),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	// Optional Prometheus metrics
	if appconfig.GetEnvAsBool("ENABLE_METRICS", false) {
		app.Use(metrics.PrometheusMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Initialize rate limiters
	rateLimits := middleware.NewRateLimitConfig(rdb)

	// Change events are emitted through the hub after each committed mutation.
	emitter := realtime.NewEmitter(hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, config)
	userHandler := handlers.NewUserHandler(db, emitter)
	leadHandler := handlers.NewLeadHandler(db, emitter)
	activityHandler := handlers.NewActivityHandler(db, emitter)
	dashboardHandler := handlers.NewDashboardHandler(db, rdb)

	// API group
	api := app.Group("/api/v1")

	// Full health check with dependency detail
	api.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		health := fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		}

		var userCount int
		dbHealthy := true
		if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
			dbHealthy = false
			health["database"] = "unhealthy"
		} else {
			health["database"] = "healthy"
			health["user_count"] = userCount
		}

		redisHealthy := true
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisHealthy = false
			health["redis"] = "unhealthy"
		} else {
			health["redis"] = "healthy"
		}

		health["websocket_connections"] = hub.ConnectionCount()

		if !dbHealthy || !redisHealthy {
			health["status"] = "unhealthy"
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}

		return c.JSON(health)
	})

	// Authentication routes (public) - Tier 1: Strictest rate limiting
	api.Post("/auth/login", rateLimits.AuthLimiter, authHandler.Login)

	// Protected routes (require JWT)
	protected := api.Group("", middleware.JWTMiddleware(config.JWTSecret))

	protected.Get("/auth/me", rateLimits.LightweightLimiter, authHandler.Me)

	// User management - admins manage accounts, managers can read and update
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrManager := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	protected.Get("/users", rateLimits.StandardCRUDLimiter, adminOrManager, userHandler.ListUsers)
	protected.Get("/users/:id", rateLimits.StandardCRUDLimiter, userHandler.GetUser)
	protected.Post("/users", rateLimits.StandardCRUDLimiter, adminOnly, userHandler.CreateUser)
	protected.Put("/users/:id", rateLimits.StandardCRUDLimiter, adminOrManager, userHandler.UpdateUser)
	protected.Delete("/users/:id", rateLimits.StandardCRUDLimiter, adminOnly, userHandler.DeleteUser)

	// Leads - Tier 2: Standard CRUD
	protected.Get("/leads", rateLimits.StandardCRUDLimiter, leadHandler.ListLeads)
	protected.Get("/leads/:id", rateLimits.StandardCRUDLimiter, leadHandler.GetLead)
	protected.Post("/leads", rateLimits.StandardCRUDLimiter, leadHandler.CreateLead)
	protected.Patch("/leads/:id", rateLimits.StandardCRUDLimiter, leadHandler.UpdateLead)
	protected.Delete("/leads/:id", rateLimits.StandardCRUDLimiter, adminOrManager, leadHandler.DeleteLead)

	// Timeline, activities and notes per lead
	protected.Get("/leads/:id/timeline", rateLimits.StandardCRUDLimiter, activityHandler.GetTimeline)
	protected.Post("/leads/:id/activities", rateLimits.StandardCRUDLimiter, activityHandler.CreateActivity)
	protected.Post("/leads/:id/notes", rateLimits.StandardCRUDLimiter, activityHandler.CreateNote)
	protected.Get("/leads/:id/collaborative-note", rateLimits.StandardCRUDLimiter, activityHandler.GetCollaborativeNote)
	protected.Put("/leads/:id/collaborative-note", rateLimits.StandardCRUDLimiter, activityHandler.SaveCollaborativeNote)

	// Dashboard - Tier 3: Lightweight cached reads
	protected.Get("/dashboard/stats", rateLimits.LightweightLimiter, dashboardHandler.GetStats)

	// WebSocket relay. Auth happens inside the handler via the token query
	// parameter because browsers cannot set headers on websocket dials.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", fiberws.New(func(conn *fiberws.Conn) {
		realtime.HandleWebSocket(conn, hub, config.JWTSecret)
	}))
}
