package settings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgauge/internal/config"
	"netgauge/internal/settings"
	"netgauge/internal/testsupport"
)

func TestSetupDefaultSettingsIsIdempotent(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	require.NoError(t, settings.SetupDefaultSettings(db, logger))
	require.NoError(t, settings.SetupDefaultSettings(db, logger))

	value, err := settings.GetSetting(db, settings.KeyLastLookup)
	require.NoError(t, err)
	assert.Equal(t, "{}", value)
}

func TestUpdateSettingCreatesWhenMissing(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	require.NoError(t, settings.UpdateSetting(db, logger, "some_key", "v1"))

	value, err := settings.GetSetting(db, "some_key")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	require.NoError(t, settings.UpdateSetting(db, logger, "some_key", "v2"))

	value, err = settings.GetSetting(db, "some_key")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestSetupDefaultSettingsUsesConfiguredCacheWindow(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	cfg := config.GetConfig()
	originalWindow := cfg.LookupCacheSeconds
	t.Cleanup(func() {
		cfg.LookupCacheSeconds = originalWindow
		require.NoError(t, settings.SetupDefaultSettings(db, logger))
	})

	// The cache is rebuilt from whatever window is configured; with a
	// degenerate zero window it still serves reads.
	for _, window := range []int{1, 0} {
		cfg.LookupCacheSeconds = window
		require.NoError(t, settings.SetupDefaultSettings(db, logger))

		saved := &settings.LookupSnapshot{IP: "203.0.113.5", FetchedAt: time.Now().UTC()}
		require.NoError(t, settings.SaveLastLookup(db, logger, saved))

		snapshot, err := settings.GetLastLookup(db)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "203.0.113.5", snapshot.IP)
	}
}

func TestLastLookupRoundTrip(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	require.NoError(t, settings.SetupDefaultSettings(db, logger))

	// Empty placeholder reads back as nil.
	snapshot, err := settings.GetLastLookup(db)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	saved := &settings.LookupSnapshot{
		IP:          "198.51.100.4",
		City:        "Lisbon",
		Region:      "Lisboa",
		CountryName: "Portugal",
		Org:         "Example Telecom",
		FetchedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, settings.SaveLastLookup(db, logger, saved))

	snapshot, err = settings.GetLastLookup(db)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "198.51.100.4", snapshot.IP)
	assert.Equal(t, "Example Telecom", snapshot.Org)
	assert.True(t, snapshot.FetchedAt.Equal(saved.FetchedAt))
}
