package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"crmhub/utils"
)

// RateLimitConfig holds all rate limiter instances
type RateLimitConfig struct {
	AuthLimiter         fiber.Handler
	StandardCRUDLimiter fiber.Handler
	LightweightLimiter  fiber.Handler
}

// NewRateLimitConfig creates all rate limiters using Redis storage so the
// counters survive restarts and are shared across replicas.
func NewRateLimitConfig(rdb *redis.Client) *RateLimitConfig {
	storage := redisstorage.NewFromConnection(rdb)

	// Tier 1: auth endpoints, strictest to slow brute force
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many authentication attempts. Please try again later.",
			})
		},
	})

	// Tier 2: standard CRUD traffic
	standardCRUDLimiter := limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})

	// Tier 3: cheap read endpoints (health, dashboard, me)
	lightweightLimiter := limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})

	return &RateLimitConfig{
		AuthLimiter:         authLimiter,
		StandardCRUDLimiter: standardCRUDLimiter,
		LightweightLimiter:  lightweightLimiter,
	}
}
