package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDestinationsDefaults(t *testing.T) {
	dests, err := LoadDestinations("")
	require.NoError(t, err)
	require.Len(t, dests, 4)
	assert.Equal(t, "cole_home", dests[0].Name)
	assert.Equal(t, "transit", dests[0].Mode)
	assert.Equal(t, 17, dests[0].DepartureTime.Hour())
}

func TestParseDestinations(t *testing.T) {
	raw := []byte(`
destinations:
  - name: office
    lat: 51.05
    lon: -114.07
    mode: Transit
    departure_time: "2020-04-27T08:00:00"
  - name: gym
    lat: 51.1
    lon: -114.1
    mode: walking
    departure_time: "2020-04-27T18:30:00-06:00"
`)
	dests, err := ParseDestinations(raw)
	require.NoError(t, err)
	require.Len(t, dests, 2)

	assert.Equal(t, "office", dests[0].Name)
	assert.Equal(t, "transit", dests[0].Mode)
	assert.Equal(t, 51.05, dests[0].Lat)
	assert.True(t, time.Date(2020, 4, 27, 8, 0, 0, 0, time.Local).Equal(dests[0].DepartureTime))

	_, offset := dests[1].DepartureTime.Zone()
	assert.Equal(t, -6*3600, offset)
}

func TestParseDestinationsRejects(t *testing.T) {
	tests := map[string]string{
		"empty":         `destinations: []`,
		"no name":       "destinations:\n  - mode: driving\n    departure_time: \"2020-04-27T08:00:00\"",
		"duplicate":     "destinations:\n  - {name: a, mode: driving, departure_time: \"2020-04-27T08:00:00\"}\n  - {name: a, mode: driving, departure_time: \"2020-04-27T08:00:00\"}",
		"bad mode":      "destinations:\n  - {name: a, mode: flying, departure_time: \"2020-04-27T08:00:00\"}",
		"no departure":  "destinations:\n  - {name: a, mode: driving}",
		"bad departure": "destinations:\n  - {name: a, mode: driving, departure_time: tomorrow}",
		"not yaml":      "destinations: [",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDestinations([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadDestinationsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destinations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destinations:\n  - {name: work, lat: 1, lon: 2, mode: driving, departure_time: \"2020-04-27T08:00:00\"}\n"), 0o644))

	dests, err := LoadDestinations(path)
	require.NoError(t, err)
	require.Len(t, dests, 1)
	assert.Equal(t, "work", dests[0].Name)

	_, err = LoadDestinations(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("SCRAPE_DELAY_SECONDS", "5")
	t.Setenv("FETCH_MODE", "Browser")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("LISTING_BASE_URL", "https://site.example/")
	t.Setenv("GMAIL_HTML_PART", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.ScrapeDelay)
	assert.Equal(t, FetchModeBrowser, cfg.FetchMode)
	assert.True(t, cfg.PostgresEnabled)
	assert.Equal(t, "https://site.example", cfg.ListingBaseURL)
	assert.Equal(t, 1, cfg.GmailHTMLPart)
	assert.Contains(t, cfg.DSN(), "dbname=rental_db")
}
