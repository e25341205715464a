package getty

import (
	"html"
	"regexp"
	"strings"
)

// Parser states for the preliminary result listing. The TGN servlet
// emits one result as a checkbox row (carrying the subject id), a name
// row, a hierarchy row, and an arbitrary tail, so the parser walks the
// page line by line through these states.
type parseState int

const (
	lookingForIDCode parseState = iota
	lookingForPlaceName
	lookingForHierarchy
	lookingForExtrasOrEnd
	placeHasBeenParsed
)

// Place is one candidate scraped from the Getty TGN.
type Place struct {
	ID        string
	Name      string
	AltOf     string // non-empty when this row matched an alternate name
	Continent string
	Country   string
	State     string
	County    string
	PlaceType string
	Latitude  float64
	Longitude float64
	HasCoords bool
}

// PageResult is what parsePage extracts from one listing page.
type PageResult struct {
	Places       []Place
	NoResults    bool
	TooMany      bool
	FailedSyntax bool
	ServerError  bool
	HasMore      bool
}

var (
	idCodeRe    = regexp.MustCompile(`(?i)<INPUT[^>]*TYPE="?checkbox"?[^>]*VALUE="?(\d+)"?`)
	placeNameRe = regexp.MustCompile(`(?i)<B>([^<]+)</B>(?:<[^>]+>)*\s*(?:\(([^)]+)\))?\s*(?:\(([^)]+)\))?`)
	hierarchyRe = regexp.MustCompile(`\(World,([^)]*)\)`)
	nextPageRe  = regexp.MustCompile(`(?i)TGNServlet[^"']*[?&]page=\d+`)

	noResultsRe   = regexp.MustCompile(`(?i)your search has produced no results`)
	tooManyRe     = regexp.MustCompile(`(?i)your search has produced too many results`)
	badSyntaxRe   = regexp.MustCompile(`(?i)(invalid (search )?syntax|syntax error)`)
	serverErrorRe = regexp.MustCompile(`(?i)server error`)
)

// Hierarchy names that contain commas would break the comma-split
// parse, so they are rewritten before splitting.
var hierarchyFixes = strings.NewReplacer(
	"Korea, South", "South Korea",
	"Korea, North", "North Korea",
	"Congo, Democratic Republic of", "Democratic Republic of the Congo",
	"Tanzania, United Republic of", "Tanzania",
	"Micronesia, Federated States of", "Federated States of Micronesia",
	"Bonaire, Saint Eustatius and Saba", "Caribbean Netherlands",
)

// parsePage runs the listing parser over one page of TGN HTML.
func parsePage(page string) PageResult {
	var (
		result  PageResult
		state   = lookingForIDCode
		current Place
	)

	result.HasMore = nextPageRe.MatchString(page)

	for _, line := range strings.Split(page, "\n") {
		switch {
		case noResultsRe.MatchString(line):
			result.NoResults = true
			return result
		case tooManyRe.MatchString(line):
			result.TooMany = true
			return result
		case badSyntaxRe.MatchString(line):
			result.FailedSyntax = true
			return result
		case serverErrorRe.MatchString(line):
			result.ServerError = true
			return result
		}

		switch state {
		case lookingForIDCode:
			if m := idCodeRe.FindStringSubmatch(line); m != nil {
				current = Place{ID: m[1]}
				state = lookingForPlaceName
			}

		case lookingForPlaceName:
			if m := placeNameRe.FindStringSubmatch(line); m != nil {
				current.Name = decodeEntities(m[1])
				applyAnnotations(&current, m[2], m[3])
				state = lookingForHierarchy
			} else if idCodeRe.MatchString(line) {
				// Malformed block; restart from the new id.
				if m := idCodeRe.FindStringSubmatch(line); m != nil {
					current = Place{ID: m[1]}
				}
			}

		case lookingForHierarchy:
			if m := hierarchyRe.FindStringSubmatch(line); m != nil {
				parseHierarchy(&current, m[1])
				state = lookingForExtrasOrEnd
			}

		case lookingForExtrasOrEnd:
			// The tail may still carry a place-type annotation, or run
			// straight into the next result block.
			if m := idCodeRe.FindStringSubmatch(line); m != nil {
				finishPlace(&result, &current)
				current = Place{ID: m[1]}
				state = lookingForPlaceName
				continue
			}
			if current.PlaceType == "" {
				if t, ok := matchPlaceType(line); ok {
					current.PlaceType = t
				}
			}
			if strings.Contains(strings.ToUpper(line), "</TABLE>") {
				finishPlace(&result, &current)
				state = placeHasBeenParsed
			}
		}
	}

	if state == lookingForExtrasOrEnd {
		finishPlace(&result, &current)
	}

	return result
}

func finishPlace(result *PageResult, place *Place) {
	if place.ID == "" || place.Name == "" {
		return
	}
	if place.PlaceType == "" {
		place.PlaceType = "P.PPL"
	}
	result.Places = append(result.Places, *place)
	*place = Place{}
}

// applyAnnotations sorts the parenthesized notes after a name: one may
// be a place type, the other the preferred name this row is an
// alternate of.
func applyAnnotations(place *Place, notes ...string) {
	for _, note := range notes {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		if t, ok := matchPlaceType(note); ok {
			if place.PlaceType == "" {
				place.PlaceType = t
			}
			continue
		}
		if place.AltOf == "" {
			place.AltOf = decodeEntities(note)
		}
	}
}

// parseHierarchy maps the comma-separated hierarchy tail (after
// "World") onto continent/country/state/county by depth.
func parseHierarchy(place *Place, tail string) {
	tail = hierarchyFixes.Replace(tail)
	tail = strings.TrimSuffix(strings.TrimSpace(tail), ",")

	var parts []string
	for _, p := range strings.Split(tail, ",") {
		p = strings.TrimSpace(stripBrackets(p))
		if p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) > 0 {
		place.Continent = parts[0]
	}
	if len(parts) > 1 {
		place.Country = parts[1]
	}
	if len(parts) > 2 {
		place.State = parts[2]
	}
	if len(parts) > 3 {
		place.County = strings.TrimSuffix(parts[3], " county")
	}
}

var bracketRe = regexp.MustCompile(`\s*\[\d+\]\s*`)

func stripBrackets(s string) string {
	return bracketRe.ReplaceAllString(s, "")
}

// placeTypeKeywords orders matter: more specific phrases come first.
var placeTypeKeywords = []struct {
	pattern *regexp.Regexp
	tag     string
}{
	{regexp.MustCompile(`(?i)\bcape\b`), "T.CAPE"},
	{regexp.MustCompile(`(?i)\bpark\b`), "L.PRK"},
	{regexp.MustCompile(`(?i)\bpeak\b`), "T.PK"},
	{regexp.MustCompile(`(?i)\bcounty\b`), "A.ADM2"},
	{regexp.MustCompile(`(?i)\b(atoll|island)\b`), "T.ISL"},
	{regexp.MustCompile(`(?i)\bmountain\b`), "T.MT"},
	{regexp.MustCompile(`(?i)\b(dependent state|nation)\b`), "A.ADM0"},
	{regexp.MustCompile(`(?i)\b(province|state)\b`), "A.ADM1"},
	{regexp.MustCompile(`(?i)\binhabited place\b`), "P.PPL"},
}

func matchPlaceType(s string) (string, bool) {
	for _, kw := range placeTypeKeywords {
		if kw.pattern.MatchString(s) {
			return kw.tag, true
		}
	}
	return "", false
}

var (
	latRe = regexp.MustCompile(`(?i)Lat:\s*(-?\d+(?:\.\d+)?)\s*decimal`)
	lngRe = regexp.MustCompile(`(?i)Long:\s*(-?\d+(?:\.\d+)?)\s*decimal`)
)

func decodeEntities(s string) string {
	// &nbsp; decodes to U+00A0, which downstream matching treats as an
	// ordinary space.
	return strings.TrimSpace(strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " "))
}
