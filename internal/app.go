// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"netgauge/api/v1"
	"netgauge/internal/config"
	"netgauge/internal/database"
	"netgauge/internal/jobs"
	"netgauge/internal/lookup"
)

// Application wraps cartridge.Application with netgauge-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // netgauge-specific DB manager with migration methods
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager (netgauge-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Wire the geolocation client, with the optional local GeoLite2 fallback
	geoReader := lookup.OpenGeoDB(cfg.GeoDBPath, logger)
	lookupClient := lookup.NewClient(cfg.LookupURL, logger, lookup.WithGeoReader(geoReader))
	v1.SetLookupClient(lookupClient)

	// Initialize jobs system
	jobsManager, err := jobs.NewScheduler(dbManager, logger, lookupClient)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// Create the cartridge application
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes,
		BackgroundWorkers: []cartridge.BackgroundWorker{jobsManager},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
	}, nil
}
