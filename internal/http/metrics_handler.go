package http

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"panelmetrics/internal/ledger"
	"panelmetrics/internal/pkg/sysinfo"
)

// MetricsResponse combines the derived retention metrics with the stored
// install/onboarding state for diagnostics. The locale's region is
// resolved to a country name here, at the display edge; the record and
// the upload payload keep the raw locale only.
type MetricsResponse struct {
	ledger.Metrics

	Platform            string                `json:"platform,omitempty"`
	Locale              string                `json:"locale,omitempty"`
	Country             string                `json:"country,omitempty"`
	Timezone            string                `json:"timezone,omitempty"`
	OnboardingCompleted bool                  `json:"onboarding_completed"`
	TutorialStatus      ledger.TutorialStatus `json:"tutorial_status,omitempty"`
	TutorialCurrentStep string                `json:"tutorial_current_step,omitempty"`
	QuickActionUsage    int                   `json:"quick_action_usage_count"`
	ShortcutUsage       int                   `json:"shortcut_usage_count"`
	LastAnalyticsSent   string                `json:"last_analytics_sent,omitempty"`
}

// MetricsIndexAction returns the GET /api/internal/metrics handler.
func MetricsIndexAction(led *ledger.Ledger) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		metrics, err := led.RetentionMetrics()
		if err != nil {
			ctx.Logger.Error("Failed to compute retention metrics", slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to compute retention metrics",
			})
		}

		rec, err := led.Snapshot()
		if err != nil {
			ctx.Logger.Error("Failed to read analytics record", slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to read analytics record",
			})
		}

		return ctx.JSON(MetricsResponse{
			Metrics:             metrics,
			Platform:            rec.Platform,
			Locale:              rec.Locale,
			Country:             sysinfo.CountryForLocale(rec.Locale),
			Timezone:            rec.Timezone,
			OnboardingCompleted: rec.OnboardingCompleted,
			TutorialStatus:      rec.TutorialStatus,
			TutorialCurrentStep: rec.TutorialCurrentStep,
			QuickActionUsage:    rec.QuickActionUsageCount,
			ShortcutUsage:       rec.ShortcutUsageCount,
			LastAnalyticsSent:   rec.LastAnalyticsSent,
		})
	}
}
