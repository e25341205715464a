package gazetteer

import (
	"html"
	"regexp"
	"strings"

	"github.com/kshetline/svc-api/internal/atlas"
)

// Names is the canonicalized form of a remote candidate's place names,
// ready to become a Location.
type Names struct {
	City        string
	Variant     string
	County      string
	State       string
	Country     string // 3-letter code, or "XX?" when unresolvable
	LongCountry string
}

var (
	// Candidates matching these are noise rather than places.
	rejectCity = []*regexp.Regexp{
		regexp.MustCompile(`\d`),
		regexp.MustCompile(`(?i)\b(apartment|apt\.?|condominium|trailer (park|court)|mobile home)`),
		regexp.MustCompile(`(?i)\bcensus designated place\b`),
		regexp.MustCompile(`(?i)\bsubdivision\b`),
		regexp.MustCompile(`(?i)\(historical\)`),
	}

	commaInversionRe = regexp.MustCompile(`^(.+?),\s+(.+)$`)
	variantPrefixRe  = regexp.MustCompile(`^(Lake|Mount|Mt\.?|Fort|Ft\.?|Point|Pt\.?|The|La|Las|Le|Los|El|Ile[s]? d[eu])\s+(.+)$`)

	countySuffixRe = regexp.MustCompile(`(?i)\s+(county|parish|borough|census area|division)$`)
	countyPrefixRe = regexp.MustCompile(`(?i)^(county of|provincia d[ei]|province of)\s+`)
	stateSuffixRe  = regexp.MustCompile(`(?i)\s+(province|prefecture|oblast|kray|krai|district|department|governorate|region|territory|metropolitan area)$`)
	statePrefixRe  = regexp.MustCompile(`(?i)^(region of|republic of|state of|bundesland)\s+`)

	independentCityRe = regexp.MustCompile(`(?i)^city of\s+(.+?)(\s+\(independent city\))?$`)
)

// ProcessPlaceNames cleans up raw names from a remote gazetteer entry.
// It returns ok=false when the entry should be discarded outright.
func (g *Gazetteer) ProcessPlaceNames(city, county, state, country string, decodeHTML bool) (Names, bool) {
	if decodeHTML {
		city = html.UnescapeString(city)
		county = html.UnescapeString(county)
		state = html.UnescapeString(state)
		country = html.UnescapeString(country)
	}

	city = strings.TrimSpace(city)
	county = strings.TrimSpace(county)
	state = strings.TrimSpace(state)
	country = strings.TrimSpace(country)

	for _, re := range rejectCity {
		if re.MatchString(city) {
			return Names{}, false
		}
	}

	n := Names{City: city, County: county, State: state}

	// Inverted listings ("Placid, Lake") become natural order, with the
	// bare head noun kept as a searchable variant.
	if m := commaInversionRe.FindStringSubmatch(n.City); m != nil {
		n.City = m[2] + " " + m[1]
		n.Variant = m[1]
	} else if m := variantPrefixRe.FindStringSubmatch(n.City); m != nil {
		n.Variant = m[2]
	}

	n.County = countyPrefixRe.ReplaceAllString(n.County, "")
	n.County = countySuffixRe.ReplaceAllString(n.County, "")
	n.State = statePrefixRe.ReplaceAllString(n.State, "")
	n.State = stateSuffixRe.ReplaceAllString(n.State, "")

	if code3, ok := g.ResolveCountry(country); ok {
		n.Country = code3
		n.LongCountry = g.CountryName(code3)
	} else {
		n.Country = "XX?"
		n.LongCountry = country
	}

	if n.Country == "USA" || n.Country == "CAN" {
		n.State = g.StateAbbreviation(n.Country, n.State)
	}

	if n.Country == "USA" {
		n.County = standardizeShortCountyName(n.County)
		if n.County != "" && !g.IsUSCounty(n.County, n.State) {
			// Virginia-style independent cities list themselves as their
			// own county; drop the redundant entry, otherwise keep the
			// "City of" form so it cannot be mistaken for a county.
			if m := independentCityRe.FindStringSubmatch(n.County); m != nil {
				if strings.EqualFold(m[1], n.City) {
					n.County = ""
				} else {
					n.County = "City of " + m[1]
				}
			}
		}
	}

	return n, true
}

// Irregular county spellings that defeat simple title-casing.
var countySpellings = map[string]string{
	"dekalb":                "DeKalb",
	"desoto":                "DeSoto",
	"dupage":                "DuPage",
	"lasalle":               "LaSalle",
	"skagway hoonah angoon": "Skagway-Hoonah-Angoon",
	"prince of wales hyder": "Prince of Wales-Hyder",
}

// standardizeShortCountyName fixes the capitalization quirks of US
// county names as they come back from remote sources.
func standardizeShortCountyName(county string) string {
	county = strings.TrimSpace(county)
	if county == "" {
		return ""
	}

	key := strings.ToLower(strings.ReplaceAll(county, "-", " "))
	if fixed, ok := countySpellings[key]; ok {
		return fixed
	}

	words := strings.Fields(county)
	for i, w := range words {
		if len(w) > 2 && (strings.HasPrefix(w, "Mc") || strings.HasPrefix(w, "MC")) {
			rest := w[2:]
			words[i] = "Mc" + strings.ToUpper(rest[:1]) + strings.ToLower(rest[1:])
		}
	}
	return strings.Join(words, " ")
}

// AdjustUSCountyName appends the administrative suffix a US county is
// actually known by: Borough or Census Area in Alaska, Parish in
// Louisiana, County elsewhere.
func AdjustUSCountyName(county, stateAbbr string) string {
	county = strings.TrimSpace(county)
	if county == "" || countySuffixRe.MatchString(county) ||
		strings.HasPrefix(county, "City of ") {
		return county
	}

	switch strings.ToUpper(stateAbbr) {
	case "AK":
		if alaskaCensusAreas[county] {
			return county + " Census Area"
		}
		return county + " Borough"
	case "LA":
		return county + " Parish"
	case "DC":
		return county
	default:
		return county + " County"
	}
}

// CountyKey returns the simplified key used for county dedup checks.
func CountyKey(county, stateAbbr string) string {
	return atlas.Simplify(county, false) + "," + strings.ToUpper(stateAbbr)
}
