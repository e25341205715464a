package atlas

import (
	"regexp"
	"strings"
)

// ParseMode selects how aggressively the query parser splits input.
type ParseMode int

const (
	// ParseStrict honors explicit comma separators only.
	ParseStrict ParseMode = iota
	// ParseLoose additionally pulls a trailing state/country token off the
	// city when no state was given. Used for legacy clients (version < 3).
	ParseLoose
)

// StateSet answers whether a short token is a recognized state abbreviation
// or country code. Satisfied by the gazetteer.
type StateSet interface {
	IsKnownStateOrCountry(token string) bool
}

// ParsedSearchString is the normalized form of a free-form location query.
type ParsedSearchString struct {
	PostalCode  string `json:"postalCode,omitempty"`
	TargetCity  string `json:"targetCity"`
	TargetState string `json:"targetState,omitempty"`

	// ActualSearch is the query as received, trimmed.
	ActualSearch string `json:"actualSearch"`
	// NormalizedSearch is the canonical key used for search-log lookups.
	NormalizedSearch string `json:"normalizedSearch"`
}

var (
	usZipRe       = regexp.MustCompile(`^\d{5}(-\d{4,6})?$`)
	otherPostalRe = regexp.MustCompile(`^[0-9A-Z]{2,8}((-|\s+)[0-9A-Z]{2,6})?$`)
	hasDigitRe    = regexp.MustCompile(`\d`)
	trailingTokRe = regexp.MustCompile(`^(.+?)[\s]*([A-Za-z]{2,3})$`)
)

// isGenericPostal reports whether a string looks like a non-US postal code.
func isGenericPostal(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	return hasDigitRe.MatchString(u) && otherPostalRe.MatchString(u)
}

// ParseSearchString splits a free-form query such as "Nashua, NH", "90210",
// or "Paris, France" into city, state/country, and postal-code parts. The
// states set may be nil, in which case loose-mode state extraction is skipped.
func ParseSearchString(query string, mode ParseMode, states StateSet) *ParsedSearchString {
	parsed := &ParsedSearchString{ActualSearch: strings.TrimSpace(query)}

	parts := strings.Split(parsed.ActualSearch, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	city := parts[0]
	state := ""
	if len(parts) > 1 {
		state = parts[1]
	}
	// A third (country) part replaces the state.
	if len(parts) > 2 && parts[2] != "" {
		if isGenericPostal(state) || usZipRe.MatchString(state) {
			parsed.PostalCode = strings.ToUpper(state)
		}
		state = parts[2]
	}

	// Postal-code detection, US-ZIP form preferred. Examine the first two
	// whitespace tokens of the city slot, then the state slot, then the
	// generic postal pattern.
	if parsed.PostalCode == "" {
		tokens := strings.Fields(city)
		switch {
		case len(tokens) > 0 && usZipRe.MatchString(tokens[0]):
			parsed.PostalCode = tokens[0]
			city = strings.Join(tokens[1:], " ")
		case len(tokens) > 1 && usZipRe.MatchString(tokens[1]):
			parsed.PostalCode = tokens[1]
			city = strings.Join(append(tokens[:1:1], tokens[2:]...), " ")
		case state != "" && usZipRe.MatchString(state):
			parsed.PostalCode = state
			state = ""
		case city != "" && isGenericPostal(city):
			parsed.PostalCode = strings.ToUpper(city)
			city = ""
		case state != "" && isGenericPostal(state):
			parsed.PostalCode = strings.ToUpper(state)
			state = ""
		}
	}

	// Loose mode: pull a trailing two/three-letter token off the city and
	// accept it as a state iff it is a known state or country code.
	if mode == ParseLoose && state == "" && parsed.PostalCode == "" {
		if head, tok, ok := LooseStateSplit(city, states); ok {
			city = head
			state = tok
		}
	}

	parsed.TargetCity = city
	parsed.TargetState = strings.ToUpper(state)
	parsed.NormalizedSearch = normalizedSearch(city, parsed.TargetState, parsed.PostalCode)

	return parsed
}

// LooseStateSplit attempts to separate a trailing state/country token from a
// city string. With an embedded token ("NashuaNH") the tail must be upper
// case to avoid mangling ordinary names ("Austin"). Returns the city head,
// the token, and whether a split was made.
func LooseStateSplit(city string, states StateSet) (string, string, bool) {
	if states == nil {
		return "", "", false
	}

	if idx := strings.LastIndexByte(city, ' '); idx > 0 {
		head := strings.TrimSpace(city[:idx])
		tok := strings.TrimSpace(city[idx+1:])
		if len(tok) >= 2 && len(tok) <= 3 && head != "" && states.IsKnownStateOrCountry(tok) {
			return head, strings.ToUpper(tok), true
		}
		return "", "", false
	}

	m := trailingTokRe.FindStringSubmatch(city)
	if m == nil {
		return "", "", false
	}
	for _, n := range []int{2, 3} {
		if len(city) <= n {
			continue
		}
		tok := city[len(city)-n:]
		if tok != strings.ToUpper(tok) {
			continue
		}
		head := strings.TrimSpace(city[:len(city)-n])
		if head != "" && states.IsKnownStateOrCountry(tok) {
			return head, tok, true
		}
	}
	return "", "", false
}

// normalizedSearch builds the canonical log key: postal and/or city,
// optionally followed by the state.
func normalizedSearch(city, state, postal string) string {
	normCity := strings.Join(strings.Fields(strings.ToUpper(PlainASCII(city))), " ")

	switch {
	case postal != "" && normCity != "":
		return normCity + ", " + postal
	case postal != "" && state != "":
		return postal + ", " + state
	case postal != "":
		return postal
	case state != "":
		return normCity + ", " + state
	default:
		return normCity
	}
}
