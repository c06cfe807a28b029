package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-scraper/models"
)

func listing(url string, fields map[string]models.Value, order ...string) *models.Record {
	r := models.NewRecord()
	r.Set(models.FieldURL, models.Text(url))
	for _, k := range order {
		r.Set(k, fields[k])
	}
	return r
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := LoadCSVStore(filepath.Join(t.TempDir(), "listings.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Columns())
}

func TestLoadEmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := LoadCSVStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestAppendRejectsDuplicatesAndMissingURL(t *testing.T) {
	s, err := LoadCSVStore(filepath.Join(t.TempDir(), "listings.csv"))
	require.NoError(t, err)

	require.NoError(t, s.Append(listing("https://site.example/123456", nil)))
	err = s.Append(listing("https://site.example/123456", nil))
	assert.True(t, errors.Is(err, ErrDuplicate))

	assert.Error(t, s.Append(models.NewRecord()))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("https://site.example/123456"))
}

func TestRoundTripKeepsSparseColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "listings.csv")

	first, err := LoadCSVStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(listing("https://site.example/111111",
		map[string]models.Value{"price": models.Number(1200), "Parking": models.Flag()},
		"price", "Parking")))
	require.NoError(t, first.Save())

	second, err := LoadCSVStore(path)
	require.NoError(t, err)
	require.Equal(t, 1, second.Len())
	require.NoError(t, second.Append(listing("https://site.example/222222",
		map[string]models.Value{"price": models.Number(950), "Gym": models.Flag(), "description": models.Text("Has, commas\nand lines")},
		"price", "Gym", "description")))
	require.NoError(t, second.Save())

	third, err := LoadCSVStore(path)
	require.NoError(t, err)
	assert.Equal(t, []string{models.FieldURL, "price", "Parking", "Gym", "description"}, third.Columns())

	recs := third.Records()
	require.Len(t, recs, 2)

	old := recs[0]
	assert.Equal(t, "https://site.example/111111", old.URL())
	v, ok := old.Get("Parking")
	require.True(t, ok)
	assert.Equal(t, "1", v.String())
	_, ok = old.Get("Gym")
	assert.False(t, ok, "column added later stays empty for older rows")

	newer := recs[1]
	v, _ = newer.Get("price")
	assert.Equal(t, "950", v.String())
	v, _ = newer.Get("description")
	assert.Equal(t, "Has, commas\nand lines", v.String())
	_, ok = newer.Get("Parking")
	assert.False(t, ok)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.SplitN(string(raw), "\n", 3)
	assert.Equal(t, "listing_url,price,Parking,Gym,description", lines[0])
	assert.Equal(t, "https://site.example/111111,1200,1,,", lines[1])
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadCSVStore(filepath.Join(dir, "listings.csv"))
	require.NoError(t, err)
	require.NoError(t, s.Append(listing("https://site.example/123456", nil)))
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "listings.csv", entries[0].Name())
}

func TestLoadRejectsRowsWithoutURLColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte("price,beds\n1200,2\n"), 0o644))

	_, err := LoadCSVStore(path)
	assert.Error(t, err)
}

func TestSaveFileMode(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "fresh.csv")
	s, err := LoadCSVStore(fresh)
	require.NoError(t, err)
	require.NoError(t, s.Append(listing("https://site.example/123456", nil)))
	require.NoError(t, s.Save())
	fi, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())

	existing := filepath.Join(dir, "existing.csv")
	require.NoError(t, os.WriteFile(existing, []byte("listing_url\nhttps://site.example/111111\n"), 0o640))
	require.NoError(t, os.Chmod(existing, 0o640))
	s, err = LoadCSVStore(existing)
	require.NoError(t, err)
	require.NoError(t, s.Append(listing("https://site.example/123456", nil)))
	require.NoError(t, s.Save())
	fi, err = os.Stat(existing)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
}
