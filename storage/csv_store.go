package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// ErrDuplicate is returned when appending a URL that is already stored.
var ErrDuplicate = errors.New("listing already stored")

// CSVStore keeps every listing row in memory and writes them back as one CSV
// file. The header is the union of all fields ever seen, in first-seen order.
type CSVStore struct {
	path    string
	columns []string
	known   map[string]struct{}
	records []*models.Record
	urls    *utils.URLSet
}

// LoadCSVStore reads the CSV at path. A missing or empty file gives an empty
// store that will be created on Save.
func LoadCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{
		path:  path,
		known: make(map[string]struct{}),
		urls:  utils.NewURLSet(),
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	s.addColumns(header)

	hasURL := false
	for _, col := range header {
		if col == models.FieldURL {
			hasURL = true
		}
	}

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q line %d: %w", path, line, err)
		}
		if !hasURL {
			return nil, fmt.Errorf("csv: %q has rows but no %s column", path, models.FieldURL)
		}

		rec := models.NewRecord()
		for i, cell := range row {
			if cell == "" {
				continue
			}
			rec.Set(header[i], models.Text(cell))
		}
		s.records = append(s.records, rec)
		if url := rec.URL(); url != "" {
			s.urls.Add(url)
		}
	}

	return s, nil
}

func (s *CSVStore) addColumns(cols []string) {
	for _, c := range cols {
		if _, ok := s.known[c]; ok {
			continue
		}
		s.known[c] = struct{}{}
		s.columns = append(s.columns, c)
	}
}

// Path is the file the store is saved to.
func (s *CSVStore) Path() string { return s.path }

// Contains reports whether a row for url is already stored.
func (s *CSVStore) Contains(url string) bool {
	return s.urls.Contains(url)
}

// Append adds a new row. Rows are never replaced.
func (s *CSVStore) Append(rec *models.Record) error {
	url := rec.URL()
	if url == "" {
		return fmt.Errorf("csv: record has no %s", models.FieldURL)
	}
	if !s.urls.Add(url) {
		return fmt.Errorf("csv: %s: %w", url, ErrDuplicate)
	}
	s.addColumns(rec.Keys())
	s.records = append(s.records, rec)
	return nil
}

func (s *CSVStore) Len() int { return len(s.records) }

// Columns returns the current header.
func (s *CSVStore) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Records returns every stored row in file order.
func (s *CSVStore) Records() []*models.Record {
	out := make([]*models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Save overwrites the file with the header and all rows. The file is written
// next to the destination and renamed into place.
func (s *CSVStore) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".listings-*.csv")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// keep the existing file's permissions; CreateTemp uses 0600
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(s.path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv: chmod temp file: %w", err)
	}

	if err := s.writeTo(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", s.path, err)
	}
	return nil
}

func (s *CSVStore) writeTo(w io.Writer) error {
	if len(s.columns) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(s.columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	row := make([]string, len(s.columns))
	for _, rec := range s.records {
		for i, col := range s.columns {
			row[i] = ""
			if v, ok := rec.Get(col); ok {
				row[i] = v.String()
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
