package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScrape(t *testing.T) {
	m := New()
	m.ObserveScrape(2*time.Second, nil)
	m.ObserveScrape(time.Second, errors.New("boom"))
	m.ObserveScrape(time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scrapes.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Scrapes.WithLabelValues("error")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Candidates.Add(3)
	m.Appended.Inc()
	m.MarkSuccess(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "rental_scraper.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "rental_scraper_candidates_total 3")
	assert.Contains(t, out, "rental_scraper_appended_total 1")
	assert.Contains(t, out, "rental_scraper_last_success_timestamp_seconds 1.7e+09")
}
