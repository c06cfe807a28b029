package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"rental-scraper/models"
)

const departureLayout = "2006-01-02T15:04:05"

var validModes = map[string]bool{
	"driving":   true,
	"walking":   true,
	"bicycling": true,
	"transit":   true,
}

type destinationFile struct {
	Destinations []destinationEntry `yaml:"destinations"`
}

type destinationEntry struct {
	Name          string  `yaml:"name"`
	Lat           float64 `yaml:"lat"`
	Lon           float64 `yaml:"lon"`
	Mode          string  `yaml:"mode"`
	DepartureTime string  `yaml:"departure_time"`
}

// DefaultDestinations is used when no destinations file is configured.
func DefaultDestinations() []models.Destination {
	at := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 0, 0, 0, time.Local)
	}
	return []models.Destination{
		{Name: "cole_home", Lat: 51.1191706, Lon: -114.2229905, Mode: "transit", DepartureTime: at(2020, time.April, 25, 17)},
		{Name: "tiff_home", Lat: 50.9751225, Lon: -114.0240217, Mode: "driving", DepartureTime: at(2020, time.April, 25, 17)},
		{Name: "acadia_clinic", Lat: 50.9602494, Lon: -114.0471263, Mode: "driving", DepartureTime: at(2020, time.April, 27, 8)},
		{Name: "wildlife", Lat: 51.1575318, Lon: -114.2178905, Mode: "driving", DepartureTime: at(2020, time.April, 30, 8)},
	}
}

// LoadDestinations reads the YAML destinations file at path, or returns the
// defaults when path is empty.
func LoadDestinations(path string) ([]models.Destination, error) {
	if path == "" {
		return DefaultDestinations(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("destinations: read %q: %w", path, err)
	}
	return ParseDestinations(raw)
}

// ParseDestinations decodes and validates a destinations document.
func ParseDestinations(raw []byte) ([]models.Destination, error) {
	var f destinationFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("destinations: decode: %w", err)
	}
	if len(f.Destinations) == 0 {
		return nil, fmt.Errorf("destinations: none configured")
	}

	seen := make(map[string]struct{}, len(f.Destinations))
	out := make([]models.Destination, 0, len(f.Destinations))
	for i, e := range f.Destinations {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("destinations: entry %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("destinations: duplicate name %q", name)
		}
		seen[name] = struct{}{}

		mode := strings.ToLower(strings.TrimSpace(e.Mode))
		if !validModes[mode] {
			return nil, fmt.Errorf("destinations: %s: unknown mode %q", name, e.Mode)
		}

		departure, err := parseDeparture(e.DepartureTime)
		if err != nil {
			return nil, fmt.Errorf("destinations: %s: %w", name, err)
		}

		out = append(out, models.Destination{
			Name:          name,
			Lat:           e.Lat,
			Lon:           e.Lon,
			Mode:          mode,
			DepartureTime: departure,
		})
	}
	return out, nil
}

func parseDeparture(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("departure_time is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(departureLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad departure_time %q: %w", s, err)
	}
	return t, nil
}
