// Package atlas holds the core domain model for place-name resolution:
// locations, search keys, text normalization, query parsing, and the
// merge/dedup logic that reconciles local and remote results.
package atlas

import (
	"fmt"
	"math"
	"strings"
)

// Source values identify where a location came from. Values below
// MinExternalSource are local (authoritative); higher values are fresher
// remote data.
const (
	MinExternalSource = 100

	SourceGeonamesPostal  = 101
	SourceGeonamesGeneral = 103
	SourceGetty           = 104
)

// ZipRank is the rank pinned to postal-code matches. Non-postal matches
// clamp to ZipRank-1.
const ZipRank = 9

// Locations closer than this are considered the same site during dedup.
const CloseDistanceKm = 10.0

// Location is the central entity: one resolved geographic place.
type Location struct {
	City        string  `json:"city"`
	Variant     string  `json:"variant,omitempty"`
	County      string  `json:"county,omitempty"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	LongCountry string  `json:"longCountry,omitempty"`
	ShowCounty  bool    `json:"showCounty,omitempty"`
	ShowState   bool    `json:"showState,omitempty"`
	FlagCode    string  `json:"flagCode,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Elevation   float64 `json:"elevation,omitempty"`
	Zone        string  `json:"zone,omitempty"`
	Zip         string  `json:"zip,omitempty"`
	Rank        int     `json:"rank"`
	PlaceType   string  `json:"placeType,omitempty"`
	Source      int     `json:"source"`
	GeonameID   int64   `json:"geonameID,omitempty"`

	MatchedByAlternateName bool `json:"matchedByAlternateName,omitempty"`
	MatchedBySound         bool `json:"matchedBySound,omitempty"`

	// ItemNo is the atlas2 row id for locally-sourced locations, 0 otherwise.
	ItemNo int64 `json:"-"`

	// UseAsUpdate is set during dedup when a remote row supersedes a local
	// one and should be written back. Transient; never serialized.
	UseAsUpdate bool `json:"-"`
}

// IsRemote reports whether the location came from an external gazetteer.
func (loc *Location) IsRemote() bool {
	return loc.Source >= MinExternalSource
}

// DisplayName renders the location for presentation, honoring the
// ShowCounty/ShowState disambiguation hints.
func (loc *Location) DisplayName() string {
	var b strings.Builder
	b.WriteString(loc.City)

	if loc.ShowCounty && loc.County != "" {
		b.WriteString(", ")
		b.WriteString(loc.County)
	}

	if loc.State != "" && (loc.ShowState || loc.Country == "USA" || loc.Country == "CAN") {
		b.WriteString(", ")
		b.WriteString(loc.State)
	}

	if loc.Country != "" && loc.Country != "USA" {
		b.WriteString(", ")
		if loc.LongCountry != "" {
			b.WriteString(loc.LongCountry)
		} else {
			b.WriteString(loc.Country)
		}
	}

	return b.String()
}

// IsCloseMatch reports whether two locations differ only in
// presentation-layer fields: same names (case-insensitive), nearly identical
// coordinates, and equal elevation, zone, zip, and place type.
func (loc *Location) IsCloseMatch(other *Location) bool {
	return eqci(loc.City, other.City) &&
		eqci(loc.Variant, other.Variant) &&
		eqci(loc.County, other.County) &&
		eqci(loc.State, other.State) &&
		eqci(loc.Country, other.Country) &&
		math.Abs(loc.Latitude-other.Latitude) < 1e-4 &&
		math.Abs(loc.Longitude-other.Longitude) < 1e-4 &&
		loc.Elevation == other.Elevation &&
		loc.Zone == other.Zone &&
		loc.Zip == other.Zip &&
		loc.PlaceType == other.PlaceType
}

// DistanceKm returns the great-circle distance to another location.
func (loc *Location) DistanceKm(other *Location) float64 {
	return HaversineKm(loc.Latitude, loc.Longitude, other.Latitude, other.Longitude)
}

const earthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance between two lat/lon pairs.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const deg = math.Pi / 180

	dLat := (lat2 - lat1) * deg
	dLon := (lon2 - lon1) * deg

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func eqci(a, b string) bool {
	return strings.EqualFold(a, b)
}

// MakeLocationKey builds the composite bucket key for a location: simplified
// city plus state (for USA/CAN) or country. When the key is already present
// in keyed, a "(n)" suffix is appended to keep entries distinct.
func MakeLocationKey(city, state, country string, keyed map[string]*Location) string {
	base := Simplify(city, false)

	switch {
	case (country == "USA" || country == "CAN") && state != "":
		base += "," + state
	case country != "":
		base += "," + country
	}

	key := base
	for n := 2; ; n++ {
		if _, exists := keyed[key]; !exists {
			return key
		}
		key = fmt.Sprintf("%s(%d)", base, n)
	}
}

// BaseKey strips the "(n)" collision suffix from a location key.
func BaseKey(key string) string {
	if !strings.HasSuffix(key, ")") {
		return key
	}
	idx := strings.LastIndex(key, "(")
	if idx <= 0 {
		return key
	}
	for _, ch := range key[idx+1 : len(key)-1] {
		if ch < '0' || ch > '9' {
			return key
		}
	}
	return key[:idx]
}

// LocationMap is an insertion-ordered collection of locations keyed by
// MakeLocationKey. Each remote adapter builds one in isolation and returns
// it atomically.
type LocationMap struct {
	byKey map[string]*Location
	keys  []string
}

// NewLocationMap creates an empty LocationMap.
func NewLocationMap() *LocationMap {
	return &LocationMap{byKey: make(map[string]*Location)}
}

// Add inserts a location, deriving its key from city/state/country.
func (lm *LocationMap) Add(loc *Location) string {
	key := MakeLocationKey(loc.City, loc.State, loc.Country, lm.byKey)
	lm.byKey[key] = loc
	lm.keys = append(lm.keys, key)
	return key
}

// Put inserts a location under an explicit key, replacing any existing entry.
func (lm *LocationMap) Put(key string, loc *Location) {
	if _, exists := lm.byKey[key]; !exists {
		lm.keys = append(lm.keys, key)
	}
	lm.byKey[key] = loc
}

// Get returns the location for a key, or nil.
func (lm *LocationMap) Get(key string) *Location {
	if lm == nil {
		return nil
	}
	return lm.byKey[key]
}

// Len returns the number of locations in the map.
func (lm *LocationMap) Len() int {
	if lm == nil {
		return 0
	}
	return len(lm.byKey)
}

// Keys returns the keys in insertion order.
func (lm *LocationMap) Keys() []string {
	if lm == nil {
		return nil
	}
	return lm.keys
}

// Values returns the locations in insertion order.
func (lm *LocationMap) Values() []*Location {
	if lm == nil {
		return nil
	}
	out := make([]*Location, 0, len(lm.keys))
	for _, k := range lm.keys {
		out = append(out, lm.byKey[k])
	}
	return out
}
