package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"panelmetrics/internal/settings"
)

// IntakeAPIKeyAuth validates the intake API key on event endpoints.
// Expects: Authorization: Bearer <api_key>
// Only a bcrypt hash of the key is stored, so the comparison goes
// through settings.VerifyIntakeAPIKey rather than a string equality.
func IntakeAPIKeyAuth(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid Authorization header format. Expected: Bearer <api_key>",
			})
		}

		providedKey := strings.TrimPrefix(authHeader, "Bearer ")
		if providedKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is empty",
			})
		}

		if !settings.IntakeAPIKeyConfigured(db) {
			logger.Warn("Intake API key not configured")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Intake API key not configured. Generate one with pmctl rotate-intake-key.",
			})
		}

		ok, err := settings.VerifyIntakeAPIKey(db, providedKey)
		if err != nil {
			logger.Error("Failed to verify intake API key", slog.Any("error", err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Failed to verify API key",
			})
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}
