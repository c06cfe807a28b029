package models

import (
	"encoding/json"
	"time"
)

// Fixed fields every scraped listing carries.
const (
	FieldTimestamp   = "timestamp"
	FieldURL         = "listing_url"
	FieldLat         = "lat"
	FieldLon         = "lon"
	FieldDescription = "description"
)

// Record is one listing row. Fields are discovered while scraping, so the
// record is an ordered map rather than a struct.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores v under key. Setting an existing key replaces the value and
// keeps its original position.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Len() int { return len(r.keys) }

// URL returns the listing URL, the record's unique key.
func (r *Record) URL() string {
	v, ok := r.values[FieldURL]
	if !ok {
		return ""
	}
	return v.String()
}

// CapturedAt parses the timestamp field.
func (r *Record) CapturedAt() (time.Time, bool) {
	v, ok := r.values[FieldTimestamp]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v.String())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.values)
}

// Destination is a place every listing is timed against.
type Destination struct {
	Name          string
	Lat           float64
	Lon           float64
	Mode          string
	DepartureTime time.Time
}

// TravelTime is the summed duration of every step of one submode on the
// route to a destination.
type TravelTime struct {
	Destination string
	Submode     string
	Seconds     int64
}

// Field is the record column the duration is stored under.
func (t TravelTime) Field() string {
	return t.Destination + "_" + t.Submode
}

// Failure describes a candidate that could not be scraped.
type Failure struct {
	URL string
	Err string
}

// RunReport counts what one ingest run did.
type RunReport struct {
	Candidates int
	Cached     int
	Scraped    int
	Failed     int
	Appended   int
	Failures   []Failure
	Added      []*Record
}

// InsightReport summarises the whole store after a run.
type InsightReport struct {
	TotalListings  int
	AddedThisRun   int
	FailedThisRun  int
	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	Cheapest       string
	TravelAverages []TravelAverage
	ListingsByBeds map[string]int
}

// TravelAverage is the mean duration of one travel column.
type TravelAverage struct {
	Field      string
	AvgMinutes float64
	Samples    int
}
