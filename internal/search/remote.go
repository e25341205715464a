package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/gazetteer"
	"github.com/kshetline/svc-api/pkg/geonames"
	"github.com/kshetline/svc-api/pkg/getty"
)

// geoNamesAPI is the surface of pkg/geonames the orchestrator needs.
type geoNamesAPI interface {
	Search(ctx context.Context, city string) ([]geonames.Place, error)
	PostalSearch(ctx context.Context, postalCode string) ([]geonames.Place, error)
}

// gettyAPI is the surface of pkg/getty the orchestrator needs.
type gettyAPI interface {
	Search(ctx context.Context, name string) (*getty.Result, error)
}

// remoteOutcome is one adapter's all-settled result; errors are carried
// here rather than failing the group, so a slow or broken gazetteer
// never sinks the other one.
type remoteOutcome struct {
	locations *atlas.LocationMap
	elapsed   time.Duration
	err       error
}

// metricsLine renders one adapter's result count and timing for the
// response's info channel.
func (o remoteOutcome) metricsLine(name string) string {
	n := 0
	if o.locations != nil {
		n = o.locations.Len()
	}
	return fmt.Sprintf("%s: %d result(s) in %.2f seconds", name, n, o.elapsed.Seconds())
}

// consultRemotes fans out to the enabled gazetteers concurrently and
// waits for all of them. Getty is skipped for postal-code queries since
// TGN has no postal index.
func (s *Searcher) consultRemotes(ctx context.Context, g *gazetteer.Gazetteer,
	parsed *atlas.ParsedSearchString, mode RemoteMode, result *atlas.SearchResult) []*atlas.LocationMap {

	useGeonames := s.geonames != nil && mode != RemoteGetty
	useGetty := s.getty != nil && mode != RemoteGeonames && parsed.PostalCode == ""

	var (
		gnOutcome remoteOutcome
		gtOutcome remoteOutcome
	)

	grp, gctx := errgroup.WithContext(context.WithoutCancel(ctx))

	if useGeonames {
		grp.Go(func() error {
			if !s.gnGuard.allow() {
				gnOutcome = remoteOutcome{err: errRemoteSuspended}
				return nil
			}
			tctx, cancel := context.WithTimeout(gctx, s.geonamesTimeout)
			defer cancel()
			started := time.Now()
			gnOutcome = s.searchGeonames(tctx, g, parsed)
			gnOutcome.elapsed = time.Since(started)
			s.gnGuard.record(gnOutcome.err)
			return nil
		})
	}
	if useGetty {
		grp.Go(func() error {
			if !s.gtGuard.allow() {
				gtOutcome = remoteOutcome{err: errRemoteSuspended}
				return nil
			}
			tctx, cancel := context.WithTimeout(gctx, s.gettyTimeout)
			defer cancel()
			started := time.Now()
			gtOutcome = s.searchGetty(tctx, g, parsed)
			gtOutcome.elapsed = time.Since(started)
			s.gtGuard.record(gtOutcome.err)
			return nil
		})
	}

	_ = grp.Wait()

	var maps []*atlas.LocationMap
	anyFailed := false

	if useGeonames {
		if gnOutcome.err != nil {
			anyFailed = true
			zap.L().Warn("geonames lookup failed", zap.Error(gnOutcome.err))
		} else if gnOutcome.locations != nil {
			maps = append(maps, gnOutcome.locations)
			appendLine(&result.Info, gnOutcome.metricsLine("GeoNames"))
		}
	}
	if useGetty {
		if gtOutcome.err != nil {
			anyFailed = true
			zap.L().Warn("getty lookup failed", zap.Error(gtOutcome.err))
		} else if gtOutcome.locations != nil {
			maps = append(maps, gtOutcome.locations)
			appendLine(&result.Info, gtOutcome.metricsLine("Getty TGN"))
		}
	}

	if anyFailed {
		appendLine(&result.Warning, supplementaryUnavailable)
	}

	return maps
}

// searchGeonames runs the appropriate GeoNames query and converts the
// hits to canonical locations.
func (s *Searcher) searchGeonames(ctx context.Context, g *gazetteer.Gazetteer,
	parsed *atlas.ParsedSearchString) remoteOutcome {

	var (
		places []geonames.Place
		source int
		err    error
	)

	if parsed.PostalCode != "" {
		places, err = s.geonames.PostalSearch(ctx, parsed.PostalCode)
		source = atlas.SourceGeonamesPostal
	} else {
		places, err = s.geonames.Search(ctx, parsed.TargetCity)
		source = atlas.SourceGeonamesGeneral
	}
	if err != nil {
		return remoteOutcome{err: err}
	}

	locations := atlas.NewLocationMap()
	for _, place := range places {
		loc, ok := s.geonamesToLocation(g, parsed, place, source)
		if !ok {
			continue
		}
		locations.Add(loc)
	}
	return remoteOutcome{locations: locations}
}

func (s *Searcher) geonamesToLocation(g *gazetteer.Gazetteer, parsed *atlas.ParsedSearchString,
	place geonames.Place, source int) (*atlas.Location, bool) {

	country := place.CountryCode
	// GeoNames leaves the country blank for Antarctic stations.
	if country == "" && place.Continent == "AN" {
		country = "ATA"
	}

	names, ok := g.ProcessPlaceNames(place.Name, place.AdminName2, place.AdminName1, country, false)
	if !ok {
		return nil, false
	}

	if parsed.PostalCode == "" {
		if !atlas.CloseMatchForCity(parsed.TargetCity, names.City) {
			return nil, false
		}
		if !g.CloseMatchForState(parsed.TargetState, names.State, names.Country) {
			return nil, false
		}
	}

	if names.Country == "USA" {
		names.County = gazetteer.AdjustUSCountyName(names.County, names.State)
	}

	// Postal hits rank above everything else, like the local ladder's.
	rank := place.Rank
	if source == atlas.SourceGeonamesPostal {
		rank = atlas.ZipRank
	}

	return &atlas.Location{
		City:        names.City,
		Variant:     names.Variant,
		County:      names.County,
		State:       names.State,
		Country:     names.Country,
		LongCountry: names.LongCountry,
		FlagCode:    g.FlagCode(names.Country),
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		Elevation:   float64(place.Elevation),
		Zip:         place.PostalCode,
		Rank:        rank,
		PlaceType:   place.PlaceType,
		Source:      source,
		GeonameID:   place.GeonameID,
	}, true
}

// gettyContinents maps TGN continent names to the codes GeoNames uses;
// only Antarctica changes the outcome, by supplying a country.
var gettyContinents = map[string]string{
	"antarctica": "AN",
}

// searchGetty scrapes the TGN listing and converts the hits.
func (s *Searcher) searchGetty(ctx context.Context, g *gazetteer.Gazetteer,
	parsed *atlas.ParsedSearchString) remoteOutcome {

	scraped, err := s.getty.Search(ctx, parsed.TargetCity)
	if err != nil {
		return remoteOutcome{err: err}
	}
	if scraped.FailedSyntax || scraped.TooMany {
		// Not failures, just queries TGN cannot narrow; nothing usable.
		return remoteOutcome{locations: atlas.NewLocationMap()}
	}

	locations := atlas.NewLocationMap()
	for _, place := range scraped.Places {
		loc, ok := s.gettyToLocation(g, parsed, place)
		if !ok {
			continue
		}
		locations.Add(loc)
	}
	return remoteOutcome{locations: locations}
}

func (s *Searcher) gettyToLocation(g *gazetteer.Gazetteer, parsed *atlas.ParsedSearchString,
	place getty.Place) (*atlas.Location, bool) {

	if !place.HasCoords {
		return nil, false
	}

	country := place.Country
	if country == "" && gettyContinents[strings.ToLower(place.Continent)] == "AN" {
		country = "ATA"
	}

	// Alternate-name rows resolve to the preferred name, keeping the
	// matched name as a variant.
	city := place.Name
	if place.AltOf != "" {
		city = place.AltOf
	}

	names, ok := g.ProcessPlaceNames(city, place.County, place.State, country, true)
	if !ok {
		return nil, false
	}

	// The query must match the row under either of its names.
	if !atlas.CloseMatchForCity(parsed.TargetCity, names.City) &&
		!atlas.CloseMatchForCity(parsed.TargetCity, place.Name) {
		return nil, false
	}
	if !g.CloseMatchForState(parsed.TargetState, names.State, names.Country) {
		return nil, false
	}

	if names.Country == "USA" {
		names.County = gazetteer.AdjustUSCountyName(names.County, names.State)
	}

	loc := &atlas.Location{
		City:        names.City,
		Variant:     names.Variant,
		County:      names.County,
		State:       names.State,
		Country:     names.Country,
		LongCountry: names.LongCountry,
		FlagCode:    g.FlagCode(names.Country),
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		Rank:        gettyRank(place.PlaceType),
		PlaceType:   place.PlaceType,
		Source:      atlas.SourceGetty,
	}
	if place.AltOf != "" {
		loc.Variant = place.Name
		loc.MatchedByAlternateName = true
	}
	return loc, true
}

// gettyRank scores TGN hits below GeoNames populated places, since TGN
// carries no population data to rank by.
func gettyRank(placeType string) int {
	switch {
	case strings.HasPrefix(placeType, "A.ADM0"):
		return 3
	case strings.HasPrefix(placeType, "A.") || strings.HasPrefix(placeType, "P."):
		return 1
	default:
		return 0
	}
}
