package results_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgauge/internal/results"
	"netgauge/internal/testsupport"
)

func TestInsertAssignsServerTimestamp(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	before := time.Now().UTC()
	result, err := results.Insert(dbManager, logger, &results.InsertInput{
		LatencyMs:    23,
		DownloadMbps: 87.5,
		ISP:          "Example Telecom",
		IPAddress:    "198.51.100.4",
		Location:     "Lisbon, Lisboa",
	})
	after := time.Now().UTC()
	require.NoError(t, err)

	assert.NotZero(t, result.ID)
	assert.False(t, result.CreatedAt.Before(before))
	assert.False(t, result.CreatedAt.After(after))

	var stored results.Result
	require.NoError(t, dbManager.GetConnection().First(&stored, result.ID).Error)
	assert.Equal(t, 23, stored.LatencyMs)
	assert.Equal(t, 87.5, stored.DownloadMbps)
	assert.Equal(t, "Example Telecom", stored.ISP)
	assert.Equal(t, "198.51.100.4", stored.IPAddress)
	assert.Equal(t, "Lisbon, Lisboa", stored.Location)
}

func TestInsertDefaultsISPToUnknown(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	result, err := results.Insert(dbManager, logger, &results.InsertInput{
		LatencyMs:    15,
		DownloadMbps: 42.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", result.ISP)
}

func TestRecentOrderAndCap(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		testsupport.CreateTestResult(t, db, 10+i, float64(i), base.Add(time.Duration(i)*time.Minute))
	}

	rows, err := results.Recent(db)
	require.NoError(t, err)

	// Never more than 50 rows, newest first.
	require.Len(t, rows, results.HistoryLimit)
	assert.Equal(t, float64(59), rows[0].DownloadMbps)
	assert.Equal(t, float64(10), rows[len(rows)-1].DownloadMbps)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].CreatedAt.After(rows[i-1].CreatedAt),
			"row %d is newer than row %d", i, i-1)
	}
}

func TestRecentTiebreaksOnID(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	// Same created_at for all rows: insert order decides.
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := testsupport.CreateTestResult(t, db, 10, 1.0, ts)
	second := testsupport.CreateTestResult(t, db, 10, 2.0, ts)

	rows, err := results.Recent(db)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)
}

func TestRecentEmptyTable(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	rows, err := results.Recent(db)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCount(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	count, err := results.Count(db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	testsupport.CreateTestResult(t, db, 12, 50.0, time.Now().UTC())

	count, err = results.Count(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
