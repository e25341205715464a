package zones

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type tableStub map[string]string

func (s tableStub) ZonesForKey(_ context.Context, key string) (string, error) {
	return s[key], nil
}

type finderFunc func(lng, lat float64) string

func (f finderFunc) GetTimezoneName(lng, lat float64) string { return f(lng, lat) }

var noFinder = finderFunc(func(_, _ float64) string { return "" })

func TestZoneFor_MostSpecificKeyWins(t *testing.T) {
	table := tableStub{
		"USA":                "America/Chicago,America/New_York",
		"USA:IN":             "America/Indiana/Indianapolis,America/Chicago",
		"USA:IN:VANDERBURGH": "America/Chicago",
	}
	r := NewWithFinder(table, noFinder)

	loc := &atlas.Location{Country: "USA", State: "IN", County: "Vanderburgh"}
	zone, err := r.ZoneFor(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", zone)
}

func TestZoneFor_AmbiguousGetsQuestionMark(t *testing.T) {
	table := tableStub{"USA:IN": "America/Indiana/Indianapolis,America/Chicago"}
	r := NewWithFinder(table, noFinder)

	loc := &atlas.Location{Country: "USA", State: "IN"}
	zone, err := r.ZoneFor(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "America/Indiana/Indianapolis?", zone)
}

func TestZoneFor_CoordinatesSettleAmbiguity(t *testing.T) {
	table := tableStub{"USA:IN": "America/Indiana/Indianapolis,America/Chicago"}
	finder := finderFunc(func(lng, lat float64) string {
		assert.InDelta(t, -87.5, lng, 0.1)
		return "America/Chicago"
	})
	r := NewWithFinder(table, finder)

	loc := &atlas.Location{Country: "USA", State: "IN", Latitude: 38.0, Longitude: -87.5}
	zone, err := r.ZoneFor(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", zone)
}

func TestZoneFor_FallsBackToFinder(t *testing.T) {
	finder := finderFunc(func(_, _ float64) string { return "Europe/Paris" })
	r := NewWithFinder(tableStub{}, finder)

	loc := &atlas.Location{Country: "FRA", Latitude: 48.8566, Longitude: 2.3522}
	zone, err := r.ZoneFor(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", zone)
}

func TestFillZones_OnlyTouchesEmptyZones(t *testing.T) {
	table := tableStub{"USA:NH": "America/New_York"}
	r := NewWithFinder(table, noFinder)

	locs := []*atlas.Location{
		{Country: "USA", State: "NH"},
		{Country: "USA", State: "NH", Zone: "America/Detroit"},
		{Country: "XX?"},
	}
	r.FillZones(context.Background(), locs)

	assert.Equal(t, "America/New_York", locs[0].Zone)
	assert.Equal(t, "America/Detroit", locs[1].Zone, "existing zones untouched")
	assert.Empty(t, locs[2].Zone)
}
