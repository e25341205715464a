package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/gazetteer"
)

var (
	dottedAbbrRe = regexp.MustCompile(`\b([A-Za-z]\.){2,}`)
	strayPunctRe = regexp.MustCompile(`[;:!?#@$%^*_=+<>{}\[\]|\\/]`)
	periodSepRe  = regexp.MustCompile(`^[^,]+\.\s+\S`)
)

// Suggestions proposes query rewrites when a search came up empty.
// Each entry is a complete, user-facing sentence.
func Suggestions(g *gazetteer.Gazetteer, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var out []string

	// "Nashua NH" without a comma: the missing separator is the most
	// common reason a query misses.
	if !strings.Contains(query, ",") {
		if city, state, ok := atlas.LooseStateSplit(query, g); ok {
			out = append(out, fmt.Sprintf("Did you mean \"%s, %s\"?", city, state))
		}
	}

	// Periods used where commas belong ("Nashua. NH").
	if !strings.Contains(query, ",") && periodSepRe.MatchString(query) {
		out = append(out, fmt.Sprintf("Did you mean \"%s\"?",
			strings.Join(strings.Fields(strings.ReplaceAll(query, ".", ",")), " ")))
	}

	// Dotted abbreviations ("N.H.") are not matched; suggest the bare form.
	if dottedAbbrRe.MatchString(query) {
		undotted := strings.Join(strings.Fields(strings.ReplaceAll(query, ".", "")), " ")
		out = append(out, fmt.Sprintf("Try without periods: \"%s\".", undotted))
	}

	if strings.Count(query, ",") > 2 {
		out = append(out, "Try fewer terms, such as just a city and a state or country.")
	}

	if strayPunctRe.MatchString(query) {
		out = append(out, "Try removing punctuation other than commas.")
	}

	return out
}
