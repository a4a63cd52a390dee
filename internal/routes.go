package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "panelmetrics/api/v1"
	"panelmetrics/internal/config"
	"panelmetrics/internal/flush"
	"panelmetrics/internal/http"
	"panelmetrics/internal/http/middleware"
	"panelmetrics/internal/ledger"
)

// intakeCORSConfig is the CORS configuration for the intake endpoints.
// The panel UI lives in the host application, not a browser origin we
// control, so the intake accepts any origin and relies on the API key.
var intakeCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, User-Agent",
}

// MountAppRoutes returns the route mounting function for the given
// ledger and sender.
func MountAppRoutes(led *ledger.Ledger, sender *flush.Sender) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		cfg := config.GetConfig()

		// Helper to conditionally apply rate limiting (only in production)
		// In development/test, rate limiting would interfere with testing
		conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
			return func(c *fiber.Ctx) error {
				if cfg.IsProduction() {
					return limiter(c)
				}
				return c.Next()
			}
		}

		// Rate limiter for the event intake (120 requests per minute).
		// Tracking events are human-triggered; anything past this rate is
		// a runaway client, not real usage.
		intakeRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(120),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		db := srv.GetDBManager().GetConnection()
		logger := srv.GetLogger()

		intakeConfig := &cartridge.RouteConfig{
			EnableCORS: true,
			CustomMiddleware: []fiber.Handler{
				intakeRateLimiter,
				middleware.IntakeAPIKeyAuth(db, logger),
			},
			CORSConfig: intakeCORSConfig,
		}

		internalConfig := &cartridge.RouteConfig{
			CustomMiddleware: []fiber.Handler{
				middleware.IntakeAPIKeyAuth(db, logger),
			},
		}

		// Health check endpoint
		srv.Get("/_health", http.HealthIndexAction)
		srv.Head("/_health", http.HealthIndexAction)

		// === EVENT INTAKE ===
		srv.Post("/api/v1/events", v1.TrackEventHandler(led, sender), intakeConfig)
		srv.Options("/api/v1/events", func(ctx *cartridge.Context) error {
			return ctx.SendStatus(fiber.StatusNoContent)
		}, intakeConfig)

		// === INTERNAL DIAGNOSTICS ===
		srv.Get("/api/internal/metrics", http.MetricsIndexAction(led), internalConfig)
	}
}
