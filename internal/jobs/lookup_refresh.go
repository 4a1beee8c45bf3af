package jobs

import (
	"context"
	"log/slog"
	"time"

	"netgauge/internal/config"
	"netgauge/internal/lookup"
	"netgauge/internal/settings"
)

// LookupRefreshJob keeps the cached geolocation snapshot warm so dashboard
// loads are served from the settings table instead of the third-party service.
type LookupRefreshJob struct {
	dbManager Store
	logger    *slog.Logger
	cfg       *config.Config
	client    *lookup.Client
}

func NewLookupRefreshJob(dbManager Store, logger *slog.Logger, cfg *config.Config, client *lookup.Client) *LookupRefreshJob {
	return &LookupRefreshJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
		client:    client,
	}
}

// Run re-resolves the server's public IP info and stores the snapshot.
// Lookup failures are logged and leave the previous snapshot in place.
func (j *LookupRefreshJob) Run() error {
	if j.client == nil {
		return nil
	}

	db := j.dbManager.GetConnection()

	snapshot, err := settings.GetLastLookup(db)
	if err != nil {
		j.logger.Warn("Failed to read cached lookup", slog.Any("error", err))
	}
	ttl := time.Duration(j.cfg.LookupCacheSeconds) * time.Second
	if snapshot != nil && time.Since(snapshot.FetchedAt) < ttl {
		j.logger.Debug("Lookup snapshot still fresh, skipping refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	info, err := j.client.Lookup(ctx)
	if err != nil {
		j.logger.Warn("Lookup refresh failed, keeping previous snapshot", slog.Any("error", err))
		return nil
	}

	saved := &settings.LookupSnapshot{
		IP:          info.IP,
		City:        info.City,
		Region:      info.Region,
		CountryName: info.CountryName,
		Org:         info.Org,
		FetchedAt:   time.Now().UTC(),
	}
	if err := settings.SaveLastLookup(db, j.logger, saved); err != nil {
		j.logger.Error("Failed to store lookup snapshot", slog.Any("error", err))
		return err
	}

	j.logger.Debug("Lookup snapshot refreshed",
		slog.String("ip", info.IP),
		slog.String("org", info.Org))

	return nil
}
