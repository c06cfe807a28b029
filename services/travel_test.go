package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"rental-scraper/models"
	"rental-scraper/utils"
)

type fakeDirections struct {
	routes   map[string][]maps.Route
	err      error
	requests []*maps.DirectionsRequest
}

func (f *fakeDirections) Directions(_ context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	f.requests = append(f.requests, r)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.routes[r.Destination], nil, nil
}

func route(steps ...*maps.Step) []maps.Route {
	return []maps.Route{{Legs: []*maps.Leg{{Steps: steps}}}}
}

func step(mode string, secs int) *maps.Step {
	return &maps.Step{TravelMode: mode, Duration: time.Duration(secs) * time.Second}
}

var testDestinations = []models.Destination{
	{Name: "cole_home", Lat: 51.1191706, Lon: -114.2229905, Mode: "transit", DepartureTime: time.Unix(1587855600, 0)},
	{Name: "tiff_home", Lat: 50.9751225, Lon: -114.0240217, Mode: "driving", DepartureTime: time.Unix(1587855600, 0)},
}

func TestEstimateSumsStepsBySubmode(t *testing.T) {
	client := &fakeDirections{routes: map[string][]maps.Route{
		"51.1191706,-114.2229905": append(route(
			step("WALKING", 300),
			step("TRANSIT", 1200),
			step("WALKING", 240),
		), route(step("DRIVING", 1))...),
		"50.9751225,-114.0240217": route(step("DRIVING", 900), step("DRIVING", 60)),
	}}
	est := NewTravelEstimator(client, testDestinations, 0, utils.NewNopLogger())

	got, err := est.Estimate(context.Background(), 51.0, -114.0)
	require.NoError(t, err)
	assert.Equal(t, []models.TravelTime{
		{Destination: "cole_home", Submode: "transit", Seconds: 1200},
		{Destination: "cole_home", Submode: "walking", Seconds: 540},
		{Destination: "tiff_home", Submode: "driving", Seconds: 960},
	}, got)

	require.Len(t, client.requests, 2)
	req := client.requests[0]
	assert.Equal(t, "51,-114", req.Origin)
	assert.Equal(t, maps.TravelModeTransit, req.Mode)
	assert.Equal(t, "1587855600", req.DepartureTime)
	assert.False(t, req.Alternatives)
}

func TestEstimateErrors(t *testing.T) {
	boom := errors.New("OVER_QUERY_LIMIT")
	est := NewTravelEstimator(&fakeDirections{err: boom}, testDestinations, 0, utils.NewNopLogger())

	_, err := est.Estimate(context.Background(), 51, -114)
	var ee *EstimationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "cole_home", ee.Destination)
	assert.ErrorIs(t, err, boom)

	est = NewTravelEstimator(&fakeDirections{routes: map[string][]maps.Route{}}, testDestinations, 0, utils.NewNopLogger())
	_, err = est.Estimate(context.Background(), 51, -114)
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "no route")
}

func TestSubmodeDurationsNeedsALeg(t *testing.T) {
	_, err := submodeDurations([]maps.Route{{}})
	assert.Error(t, err)
}

func TestEstimateRateLimitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est := NewTravelEstimator(&fakeDirections{}, testDestinations, 1, utils.NewNopLogger())
	_, err := est.Estimate(ctx, 51, -114)
	var ee *EstimationError
	assert.ErrorAs(t, err, &ee)
}
