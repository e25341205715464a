// Package zones assigns IANA time zones to locations, first through the
// curated zone_lookup table, then geometrically from coordinates.
package zones

import (
	"context"
	"strings"

	"github.com/ringsaturn/tzf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

// ZoneStore reads the curated zone table.
type ZoneStore interface {
	ZonesForKey(ctx context.Context, key string) (string, error)
}

// Finder resolves a zone from coordinates. tzf's finder satisfies it.
type Finder interface {
	GetTimezoneName(lng, lat float64) string
}

// Resolver fills in missing zones on search results.
type Resolver struct {
	store  ZoneStore
	finder Finder
}

// New builds a Resolver with the embedded tzf geometry data.
func New(store ZoneStore) (*Resolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, eris.Wrap(err, "zones: initializing timezone finder")
	}
	return &Resolver{store: store, finder: finder}, nil
}

// NewWithFinder builds a Resolver with a caller-supplied finder.
func NewWithFinder(store ZoneStore, finder Finder) *Resolver {
	return &Resolver{store: store, finder: finder}
}

// FillZones assigns a zone to every location that lacks one. Failures
// leave the zone empty rather than failing the search.
func (r *Resolver) FillZones(ctx context.Context, locs []*atlas.Location) {
	for _, loc := range locs {
		if loc.Zone != "" {
			continue
		}
		zone, err := r.ZoneFor(ctx, loc)
		if err != nil {
			zap.L().Warn("zone resolution failed",
				zap.String("city", loc.City), zap.Error(err))
			continue
		}
		loc.Zone = zone
	}
}

// ZoneFor resolves a single location's zone. Table keys are tried from
// most to least specific; when a key maps to several zones the first is
// used with a trailing "?" to mark the ambiguity. Coordinates settle
// anything the table cannot.
func (r *Resolver) ZoneFor(ctx context.Context, loc *atlas.Location) (string, error) {
	for _, key := range lookupKeys(loc) {
		zones, err := r.store.ZonesForKey(ctx, key)
		if err != nil {
			return "", err
		}
		if zones == "" {
			continue
		}
		first, _, multiple := strings.Cut(zones, ",")
		if !multiple {
			return first, nil
		}
		// A specific enough key may still straddle zones; let the
		// geometry disambiguate if we have coordinates.
		if zone := r.fromCoordinates(loc); zone != "" {
			return zone, nil
		}
		return first + "?", nil
	}

	return r.fromCoordinates(loc), nil
}

func (r *Resolver) fromCoordinates(loc *atlas.Location) string {
	if r.finder == nil || (loc.Latitude == 0 && loc.Longitude == 0) {
		return ""
	}
	return r.finder.GetTimezoneName(loc.Longitude, loc.Latitude)
}

func lookupKeys(loc *atlas.Location) []string {
	country := atlas.Simplify(loc.Country, false)
	if country == "" {
		return nil
	}

	var keys []string
	state := atlas.Simplify(loc.State, false)
	county := atlas.Simplify(loc.County, false)

	if state != "" && county != "" {
		keys = append(keys, country+":"+state+":"+county)
	}
	if state != "" {
		keys = append(keys, country+":"+state)
	}
	return append(keys, country)
}
