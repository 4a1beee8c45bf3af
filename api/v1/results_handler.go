// Package v1 contains the public JSON API handlers.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"netgauge/internal/results"
)

const errInvalidRequest = "Invalid request"

// CreateResultParams is the POST /api/tests request body. All fields are
// client-reported; the stored timestamp is assigned server-side.
type CreateResultParams struct {
	LatencyMs    int     `json:"latency"`
	DownloadMbps float64 `json:"download_speed"`
	ISP          string  `json:"isp"`
	IPAddress    string  `json:"ip"`
	Location     string  `json:"location"`
}

// CreateResultHandler persists one completed speed test result.
func CreateResultHandler(ctx *cartridge.Context) error {
	var params CreateResultParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse result body", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	input := &results.InsertInput{
		LatencyMs:    params.LatencyMs,
		DownloadMbps: params.DownloadMbps,
		ISP:          params.ISP,
		IPAddress:    params.IPAddress,
		Location:     params.Location,
	}

	if _, err := results.Insert(ctx.DBManager, ctx.Logger, input); err != nil {
		ctx.Logger.Error("Failed to persist result", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save result",
		})
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
	})
}

// HistoryHandler returns up to 50 stored results, newest first.
func HistoryHandler(ctx *cartridge.Context) error {
	rows, err := results.Recent(ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to load history", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return ctx.JSON(rows)
}
