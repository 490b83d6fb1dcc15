// Package webapi exposes the rate engine over HTTP:
// - rates: resolution, conversion, ingestion and status endpoints
// - currency: currency metadata endpoints
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/webapi/common"
	currencyweb "github.com/amirasaad/fxrates/webapi/currency"
	ratesweb "github.com/amirasaad/fxrates/webapi/rates"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:        rl.MaxRequests,
			Expiration: rl.Window,
			KeyGenerator: func(c *fiber.Ctx) string {
				// Prefer proxy headers, first hop of X-Forwarded-For wins.
				if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
					if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
						return strings.TrimSpace(forwardedFor[:commaIndex])
					}
					return strings.TrimSpace(forwardedFor)
				}
				if realIP := c.Get("X-Real-IP"); realIP != "" {
					return realIP
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	if a.Config.Env != "test" {
		fiberApp.Use(logger.New())
	}

	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled: true,
	}))

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("fxrates API is running")
	})
	fiberApp.Get("/health", Health(a))

	ratesweb.Routes(fiberApp, a)
	currencyweb.Routes(fiberApp, a.Deps.Currencies)
	return fiberApp
}

// Health reports liveness plus the freshness of stored rates.
func Health(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := a.Ingester.Status(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unhealthy", err, fiber.StatusServiceUnavailable)
		}
		return c.JSON(fiber.Map{
			"status": "ok",
			"rates":  st,
		})
	}
}
