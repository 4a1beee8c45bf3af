package lookup

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLookupDecodesServiceResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ip": "198.51.100.4",
			"city": "Lisbon",
			"region": "Lisboa",
			"country_name": "Portugal",
			"org": "Example Telecom"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())

	info, err := client.Lookup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "198.51.100.4", info.IP)
	assert.Equal(t, "Example Telecom", info.ISP())
	assert.Equal(t, "Lisbon, Lisboa", info.Location())
	assert.Equal(t, "Portugal", info.CountryName)
}

func TestLookupNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())

	_, err := client.Lookup(context.Background())
	assert.Error(t, err)
}

func TestLookupUnreachableService(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", testLogger())

	_, err := client.Lookup(context.Background())
	assert.Error(t, err)
}

func TestLookupWithFallbackNoReader(t *testing.T) {
	// Without a GeoLite2 reader the HTTP error passes through untouched.
	client := NewClient("http://127.0.0.1:1", testLogger())

	_, err := client.LookupWithFallback(context.Background(), "198.51.100.4")
	assert.Error(t, err)
}

func TestInfoFallbackConstants(t *testing.T) {
	var nilInfo *Info
	assert.Equal(t, "Unknown", nilInfo.ISP())
	assert.Equal(t, "Unknown", nilInfo.Location())

	empty := &Info{}
	assert.Equal(t, "Unknown", empty.ISP())
	assert.Equal(t, "Unknown", empty.Location())

	cityOnly := &Info{City: "Porto"}
	assert.Equal(t, "Porto", cityOnly.Location())

	regionOnly := &Info{Region: "Norte"}
	assert.Equal(t, "Norte", regionOnly.Location())
}

func TestOpenGeoDBMissingFile(t *testing.T) {
	assert.Nil(t, OpenGeoDB("", testLogger()))
	assert.Nil(t, OpenGeoDB("/nonexistent/GeoLite2-City.mmdb", testLogger()))
}
