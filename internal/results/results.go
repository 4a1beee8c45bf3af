// Package results stores completed speed test results.
//
// The results table is append-only: rows are inserted when a test sequence
// completes and read back newest-first, never updated or deleted.
package results

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// HistoryLimit caps how many rows the history endpoint returns.
const HistoryLimit = 50

// Result represents one completed speed test.
type Result struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
	LatencyMs    int       `gorm:"not null" json:"latency"`
	DownloadMbps float64   `gorm:"not null" json:"download_speed"`
	ISP          string    `json:"isp"`
	IPAddress    string    `json:"ip"`
	Location     string    `json:"location"`
}

// InsertInput defines the client-provided fields of a result.
// The creation timestamp is always assigned server-side.
type InsertInput struct {
	LatencyMs    int
	DownloadMbps float64
	ISP          string
	IPAddress    string
	Location     string
}

// Insert persists one result row. The stored CreatedAt is the server clock
// at insert time regardless of anything the client sent.
func Insert(dbManager cartridge.DBManager, logger *slog.Logger, input *InsertInput) (*Result, error) {
	isp := input.ISP
	if isp == "" {
		isp = "Unknown"
	}

	result := &Result{
		CreatedAt:    time.Now().UTC(),
		LatencyMs:    input.LatencyMs,
		DownloadMbps: input.DownloadMbps,
		ISP:          isp,
		IPAddress:    input.IPAddress,
		Location:     input.Location,
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(result).Error
	})
	if err != nil {
		logger.Error("Failed to insert result", slog.Any("error", err))
		return nil, fmt.Errorf("failed to insert result: %w", err)
	}

	logger.Debug("Inserted speed test result",
		slog.Int("latency_ms", result.LatencyMs),
		slog.Float64("download_mbps", result.DownloadMbps))

	return result, nil
}

// Recent returns up to HistoryLimit results, newest first. The ID is used as
// a tiebreaker so rows created in the same instant keep insert order.
func Recent(db *gorm.DB) ([]Result, error) {
	results := make([]Result, 0, HistoryLimit)
	err := db.Model(&Result{}).
		Order("created_at DESC, id DESC").
		Limit(HistoryLimit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent results: %w", err)
	}
	return results, nil
}

// Count returns the total number of stored results.
func Count(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&Result{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}
