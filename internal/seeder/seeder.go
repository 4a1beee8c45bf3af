// Package seeder generates demo speed test history for development.
package seeder

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"netgauge/internal/results"
)

var demoISPs = []struct {
	org      string
	location string
}{
	{"Vodafone Portugal", "Lisbon, Lisboa"},
	{"MEO - Servicos de Comunicacoes", "Porto, Norte"},
	{"NOS Comunicacoes", "Braga, Norte"},
	{"Deutsche Telekom AG", "Berlin, Berlin"},
	{"Comcast Cable", "Denver, Colorado"},
}

// DefaultResultCount is the number of demo rows inserted when seeding.
const DefaultResultCount = 24

// Seeder fills the results table with plausible demo rows.
type Seeder struct {
	DBManager   cartridge.DBManager
	Logger      *slog.Logger
	ResultCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, resultCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if resultCount <= 0 {
		resultCount = DefaultResultCount
	}
	return &Seeder{
		DBManager:   dbManager,
		Logger:      logger,
		ResultCount: resultCount,
	}
}

// Seed inserts ResultCount demo rows, spread backwards over the last few
// days, unless the table already has data.
func (s *Seeder) Seed() error {
	start := time.Now()
	db := s.DBManager.GetConnection()

	count, err := results.Count(db)
	if err != nil {
		return fmt.Errorf("failed to check existing results: %w", err)
	}
	if count > 0 {
		s.Logger.Info("Results table already has data, skipping seed", slog.Int64("count", count))
		return nil
	}

	s.Logger.Info("Seeding demo results...", slog.Int("count", s.ResultCount))

	now := time.Now().UTC()
	err = sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for i := 0; i < s.ResultCount; i++ {
			isp := demoISPs[rand.IntN(len(demoISPs))]

			// Parameters loosely follow what the simulated sequence produces.
			row := results.Result{
				CreatedAt:    now.Add(-time.Duration(s.ResultCount-i) * 97 * time.Minute),
				LatencyMs:    8 + rand.IntN(90),
				DownloadMbps: 20 + rand.Float64()*180,
				ISP:          isp.org,
				IPAddress:    fmt.Sprintf("198.51.100.%d", 1+rand.IntN(250)),
				Location:     isp.location,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert demo result: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Demo seeding completed",
		slog.Int("count", s.ResultCount),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
