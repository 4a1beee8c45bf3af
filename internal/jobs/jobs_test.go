package jobs_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"netgauge/internal/config"
	"netgauge/internal/jobs"
	"netgauge/internal/lookup"
	"netgauge/internal/results"
	"netgauge/internal/settings"
	"netgauge/internal/testsupport"
)

// testStore satisfies jobs.Store over the shared test database, recording
// checkpoint invocations instead of issuing real WAL pragmas.
type testStore struct {
	db          *gorm.DB
	checkpoints []string
}

func (s *testStore) GetConnection() *gorm.DB { return s.db }

func (s *testStore) CheckpointWAL(mode string) error {
	s.checkpoints = append(s.checkpoints, mode)
	return nil
}

func TestCheckpointJobRun(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	for i := 0; i < 3; i++ {
		testsupport.CreateTestResult(t, db, 20+i, 80.0+float64(i), time.Now().UTC())
	}

	store := &testStore{db: db}
	job := jobs.NewCheckpointJob(store, testsupport.GetLogger())

	require.NoError(t, job.Run())

	// The checkpoint is passive and never touches stored rows.
	assert.Equal(t, []string{"PASSIVE"}, store.checkpoints)
	count, err := results.Count(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestLookupRefreshJob(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	store := &testStore{db: db}
	cfg := &config.Config{LookupCacheSeconds: 900}

	reset := func(t *testing.T) {
		testsupport.CleanAllTables(db)
		require.NoError(t, settings.SetupDefaultSettings(db, logger))
	}

	t.Run("skips while the snapshot is fresh", func(t *testing.T) {
		reset(t)
		require.NoError(t, settings.SaveLastLookup(db, logger, &settings.LookupSnapshot{
			IP:        "203.0.113.10",
			Org:       "Example Telecom",
			FetchedAt: time.Now().UTC(),
		}))

		var calls int
		service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(map[string]string{"ip": "203.0.113.99"})
		}))
		defer service.Close()

		job := jobs.NewLookupRefreshJob(store, logger, cfg, lookup.NewClient(service.URL, logger))
		require.NoError(t, job.Run())

		assert.Zero(t, calls)
		snapshot, err := settings.GetLastLookup(db)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "203.0.113.10", snapshot.IP)
	})

	t.Run("failed lookup keeps the previous snapshot", func(t *testing.T) {
		reset(t)
		require.NoError(t, settings.SaveLastLookup(db, logger, &settings.LookupSnapshot{
			IP:        "203.0.113.10",
			Org:       "Example Telecom",
			FetchedAt: time.Now().UTC().Add(-2 * time.Hour),
		}))

		// Closed port: the refresh attempt fails immediately.
		job := jobs.NewLookupRefreshJob(store, logger, cfg, lookup.NewClient("http://127.0.0.1:1", logger))
		require.NoError(t, job.Run())

		snapshot, err := settings.GetLastLookup(db)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "203.0.113.10", snapshot.IP)
		assert.Equal(t, "Example Telecom", snapshot.Org)
	})

	t.Run("stale snapshot is refreshed", func(t *testing.T) {
		reset(t)
		require.NoError(t, settings.SaveLastLookup(db, logger, &settings.LookupSnapshot{
			IP:        "203.0.113.10",
			FetchedAt: time.Now().UTC().Add(-2 * time.Hour),
		}))

		service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{
				"ip":   "198.51.100.42",
				"city": "Porto",
				"org":  "NOS Comunicacoes",
			})
		}))
		defer service.Close()

		job := jobs.NewLookupRefreshJob(store, logger, cfg, lookup.NewClient(service.URL, logger))
		require.NoError(t, job.Run())

		snapshot, err := settings.GetLastLookup(db)
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, "198.51.100.42", snapshot.IP)
		assert.Equal(t, "NOS Comunicacoes", snapshot.Org)
		assert.WithinDuration(t, time.Now().UTC(), snapshot.FetchedAt, time.Minute)
	})
}
