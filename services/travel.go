package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// DirectionsClient is the directions call of *maps.Client.
type DirectionsClient interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// NewMapsClient returns a Google Maps client for the given API key.
func NewMapsClient(apiKey string) (*maps.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("maps: GOOGLE_MAPS_API_KEY is required")
	}
	return maps.NewClient(maps.WithAPIKey(apiKey))
}

// EstimationError is a failed directions lookup for one destination.
type EstimationError struct {
	Destination string
	Err         error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("directions to %s: %v", e.Destination, e.Err)
}

func (e *EstimationError) Unwrap() error { return e.Err }

// TravelEstimator times a listing against every configured destination.
type TravelEstimator struct {
	client       DirectionsClient
	destinations []models.Destination
	limiter      *rate.Limiter
	logger       *utils.Logger
}

// NewTravelEstimator builds an estimator. qps <= 0 disables the client-side
// rate limit.
func NewTravelEstimator(client DirectionsClient, destinations []models.Destination, qps int, logger *utils.Logger) *TravelEstimator {
	limit := rate.Inf
	burst := 1
	if qps > 0 {
		limit = rate.Limit(qps)
		burst = qps
	}
	return &TravelEstimator{
		client:       client,
		destinations: destinations,
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger,
	}
}

// Estimate returns one duration per destination and submode, in destination
// order with submodes sorted.
func (e *TravelEstimator) Estimate(ctx context.Context, lat, lon float64) ([]models.TravelTime, error) {
	origin := latLng(lat, lon)

	var out []models.TravelTime
	for _, d := range e.destinations {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, &EstimationError{Destination: d.Name, Err: err}
		}

		routes, _, err := e.client.Directions(ctx, &maps.DirectionsRequest{
			Origin:        origin,
			Destination:   latLng(d.Lat, d.Lon),
			Mode:          maps.Mode(d.Mode),
			DepartureTime: strconv.FormatInt(d.DepartureTime.Unix(), 10),
			Alternatives:  false,
		})
		if err != nil {
			return nil, &EstimationError{Destination: d.Name, Err: err}
		}

		times, err := submodeDurations(routes)
		if err != nil {
			return nil, &EstimationError{Destination: d.Name, Err: err}
		}
		for _, t := range times {
			t.Destination = d.Name
			out = append(out, t)
		}
		e.logger.Debug("[travel] %s -> %s: %d submode(s)", origin, d.Name, len(times))
	}
	return out, nil
}

// submodeDurations sums the steps of the first leg of the first route by
// each step's own travel mode.
func submodeDurations(routes []maps.Route) ([]models.TravelTime, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("no route returned")
	}
	if len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("route has no legs")
	}

	totals := make(map[string]time.Duration)
	for _, step := range routes[0].Legs[0].Steps {
		if step == nil {
			continue
		}
		totals[strings.ToLower(step.TravelMode)] += step.Duration
	}

	modes := make([]string, 0, len(totals))
	for m := range totals {
		modes = append(modes, m)
	}
	sort.Strings(modes)

	out := make([]models.TravelTime, 0, len(modes))
	for _, m := range modes {
		out = append(out, models.TravelTime{Submode: m, Seconds: int64(totals[m] / time.Second)})
	}
	return out, nil
}

func latLng(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}
