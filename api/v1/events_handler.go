// Package v1 exposes the public event-intake API consumed by the panel
// UI. Every endpoint is non-fatal by contract: a broken store or
// collector produces an error response and a log line, never a crash of
// the host flow.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"panelmetrics/internal/flush"
	"panelmetrics/internal/ledger"
)

const msgEventTracked = "Event tracked successfully"

// TrackEventHandler returns the POST /api/v1/events handler. Opening the
// panel doubles as the daily flush trigger: panel activity is the
// natural once-a-day moment to check whether an upload is pending.
func TrackEventHandler(led *ledger.Ledger, sender *flush.Sender) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var params TrackEventParams
		if err := ctx.Ctx.BodyParser(&params); err != nil {
			ctx.Logger.Debug("Failed to parse event request", slog.Any("error", err))
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
				"code":  "INVALID_BODY",
			})
		}

		if err := Dispatch(led, params); err != nil {
			if errors.Is(err, ErrUnknownEvent) || errors.Is(err, ErrInvalidParam) {
				ctx.Logger.Debug("Rejected event", slog.String("event", params.Event), slog.Any("error", err))
				return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
					"code":  "INVALID_EVENT",
				})
			}

			ctx.Logger.Error("Failed to track event",
				slog.String("event", params.Event),
				slog.Any("error", err))
			return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to track event",
				"code":  "TRACKING_ERROR",
			})
		}

		if params.Event == EventPanelOpened {
			// Fire-and-forget; never blocks the response.
			sender.TryDaily()
		}

		ctx.Logger.Debug("Tracked event", slog.String("event", params.Event))
		return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
			"message": msgEventTracked,
			"status":  http.StatusAccepted,
		})
	}
}
