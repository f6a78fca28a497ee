package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminCredentials protects the admin group. Admin routes are not mounted
// when Password is empty.
type AdminCredentials struct {
	User     string
	Password string
}

func SetupRoutes(app *fiber.App, handler *Handler, admin AdminCredentials) {
	app.Use(RequestID())
	app.Use(RequestLogger(handler.logger))
	app.Use(ErrorHandler())

	// Health checks and metrics are not rate limited.
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter())
	v1.Use(PrometheusMiddleware())

	prices := v1.Group("/prices")
	prices.Get("/:symbol", handler.GetPrices)
	prices.Get("/:symbol/summary", handler.GetSummary)

	if admin.Password != "" {
		adminGroup := v1.Group("/admin")
		adminGroup.Use(BasicAuth(admin))
		adminGroup.Delete("/cache/:pattern", handler.InvalidateCache)
		adminGroup.Get("/stats", handler.GetSystemStats)
	}
}

func BasicAuth(admin AdminCredentials) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Users: map[string]string{admin.User: admin.Password},
		Unauthorized: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		},
	})
}
