package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"netgauge/internal/config"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Setting keys
const (
	KeyLastLookup = "last_lookup"
)

// LookupSnapshot is the cached payload of the most recent successful
// geolocation lookup, stored as JSON under KeyLastLookup.
type LookupSnapshot struct {
	IP          string    `json:"ip"`
	City        string    `json:"city"`
	Region      string    `json:"region"`
	CountryName string    `json:"country_name"`
	Org         string    `json:"org"`
	FetchedAt   time.Time `json:"fetched_at"`
}

var lookupCache *cache.Cache[string, string]

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(dbConn *gorm.DB, logger *slog.Logger) error {
	defaults := []Setting{
		{Key: KeyLastLookup, Value: "{}"},
	}
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				logger.Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	loadCache(dbConn, logger)

	return err
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting updates a setting in the database, creating it if missing.
func UpdateSetting(dbConn *gorm.DB, logger *slog.Logger, key string, value string) error {
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			setting := Setting{Key: key, Value: value}
			if err := tx.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if lookupCache != nil {
		lookupCache.Clear()
	}

	return nil
}

// GetLastLookup returns the cached geolocation snapshot, going through the
// TTL cache so repeated dashboard loads do not hit the database each time.
// Returns nil when no lookup has been stored yet.
func GetLastLookup(dbConn *gorm.DB) (*LookupSnapshot, error) {
	var raw string
	var err error

	if lookupCache != nil {
		raw, err = lookupCache.Get(KeyLastLookup)
	} else {
		raw, err = GetSetting(dbConn, KeyLastLookup)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last lookup: %w", err)
	}

	if raw == "" || raw == "{}" {
		return nil, nil
	}

	var snapshot LookupSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode last lookup: %w", err)
	}

	if snapshot.IP == "" {
		return nil, nil
	}

	return &snapshot, nil
}

// SaveLastLookup stores a geolocation snapshot as the cached lookup payload.
func SaveLastLookup(dbConn *gorm.DB, logger *slog.Logger, snapshot *LookupSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode lookup snapshot: %w", err)
	}

	return UpdateSetting(dbConn, logger, KeyLastLookup, string(raw))
}

// loadCache binds the fetch-through settings cache to dbConn. The TTL tracks
// the lookup cache window so a refreshed snapshot becomes visible no later
// than the next refresh cycle.
func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	ttl := time.Duration(config.GetConfig().LookupCacheSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	fetchFunc := func(key string) (string, error) {
		var value string
		err := dbConn.WithContext(context.Background()).
			Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).
			Scan(&value).Error
		if err != nil {
			return "", err
		}
		return value, nil
	}
	lookupCache = cache.NewCache[string, string](logger, ttl, fetchFunc)
}
