package http

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"netgauge/internal/config"
	"netgauge/internal/results"
)

// healthReport is the GET /_health response. ResultCount doubles as a cheap
// liveness probe of the results table, not just of the connection.
type healthReport struct {
	Status      string    `json:"status"`
	App         string    `json:"app"`
	DBStatus    string    `json:"db_status"`
	ResultCount int64     `json:"result_count"`
	CheckedAt   time.Time `json:"checked_at"`
}

// HealthIndexAction reports whether the server can reach its database and
// read stored speed test results.
func HealthIndexAction(ctx *cartridge.Context) error {
	report := healthReport{
		Status:    "ok",
		App:       config.GetConfig().GetAppName(),
		DBStatus:  "ok",
		CheckedAt: time.Now().UTC(),
	}

	db := ctx.DBManager.GetConnection()
	if db == nil {
		ctx.Logger.Error("Database connection unavailable")
		report.DBStatus = "error"
	} else if count, err := results.Count(db); err != nil {
		ctx.Logger.Error("Health check query failed", slog.Any("error", err))
		report.DBStatus = "error"
	} else {
		report.ResultCount = count
	}

	if report.DBStatus != "ok" {
		report.Status = "degraded"
	}

	return ctx.JSON(report)
}
