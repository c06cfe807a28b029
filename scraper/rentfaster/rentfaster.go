// Package rentfaster scrapes rental listing pages into listing records.
package rentfaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// Stages a scrape can fail at.
const (
	StageFetch       = "fetch"
	StageDescription = "description"
	StageCoordinates = "coordinates"
	StageUnitStats   = "unit stats"
	StageTravel      = "travel"
)

var fixedFields = map[string]bool{
	models.FieldTimestamp:   true,
	models.FieldURL:         true,
	models.FieldLat:         true,
	models.FieldLon:         true,
	models.FieldDescription: true,
}

// ScrapeError is a failure to build a record for one listing. The pipeline
// skips the listing and moves on.
type ScrapeError struct {
	URL   string
	Stage string
	Err   error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// TravelEstimator times the trip from a listing to each destination.
type TravelEstimator interface {
	Estimate(ctx context.Context, lat, lon float64) ([]models.TravelTime, error)
}

// Scraper orchestrates fetching, parsing and enriching one listing.
type Scraper struct {
	fetcher Fetcher
	travel  TravelEstimator
	logger  *utils.Logger
	now     func() time.Time
}

// New creates a ready-to-use Scraper.
func New(fetcher Fetcher, travel TravelEstimator, logger *utils.Logger) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		travel:  travel,
		logger:  logger,
		now:     time.Now,
	}
}

// Scrape fetches url and returns its record. Every error is a *ScrapeError.
func (s *Scraper) Scrape(ctx context.Context, url string) (*models.Record, error) {
	fail := func(stage string, err error) (*models.Record, error) {
		return nil, &ScrapeError{URL: url, Stage: stage, Err: err}
	}

	s.logger.Info("[rentfaster] collecting data for listing %s", url)

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Throttled() {
			s.logger.Warn("[rentfaster] site is throttling requests (status %d); consider a longer SCRAPE_DELAY_SECONDS", se.StatusCode)
		}
		return fail(StageFetch, err)
	}

	description, err := parseDescription(doc)
	if err != nil {
		return fail(StageDescription, err)
	}
	lat, lon, err := parseCoordinates(doc)
	if err != nil {
		return fail(StageCoordinates, err)
	}
	amenities := parseAmenities(doc)
	stats, err := parseUnitStats(doc)
	if err != nil {
		return fail(StageUnitStats, err)
	}

	times, err := s.travel.Estimate(ctx, lat, lon)
	if err != nil {
		return fail(StageTravel, err)
	}

	rec := models.NewRecord()
	rec.Set(models.FieldTimestamp, models.Text(s.now().Format(time.RFC3339)))
	rec.Set(models.FieldURL, models.Text(url))
	rec.Set(models.FieldLat, models.Number(lat))
	rec.Set(models.FieldLon, models.Number(lon))
	rec.Set(models.FieldDescription, models.Text(description))

	set := func(key string, v models.Value) {
		if fixedFields[key] {
			s.logger.Debug("[rentfaster] %s: ignoring field %q that shadows a fixed field", url, key)
			return
		}
		rec.Set(key, v)
	}
	keys, values := statFields(stats)
	for i, k := range keys {
		set(k, values[i])
	}
	for _, a := range amenities {
		set(a, models.Flag())
	}
	for _, t := range times {
		set(t.Field(), models.Number(float64(t.Seconds)))
	}

	s.logger.Debug("[rentfaster] %s: %d field(s), %d amenities, %d travel time(s)",
		url, rec.Len(), len(amenities), len(times))
	return rec, nil
}
