package v1_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgauge/internal/config"
	"netgauge/internal/testsupport"
)

func TestConfigHandlerServesProbeSettings(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	app := testsupport.CreateMinimalTestApp(t, db)

	cfg := config.GetConfig()
	originalProbeURL := cfg.ProbeURL
	cfg.ProbeURL = "https://probe.example.net/pixel.gif"
	t.Cleanup(func() { cfg.ProbeURL = originalProbeURL })

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		ProbeURL            string `json:"probe_url"`
		ProbeTimeoutSeconds int    `json:"probe_timeout_seconds"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))

	assert.Equal(t, "https://probe.example.net/pixel.gif", payload.ProbeURL)
	assert.Equal(t, cfg.ProbeTimeoutSeconds, payload.ProbeTimeoutSeconds)
}
