package atlas

import (
	"encoding/json"
	"sort"
)

// SearchResult is the full response for one search request. Matches are
// sorted by descending rank, then ascending display name.
type SearchResult struct {
	OriginalSearch   string `json:"originalSearch"`
	NormalizedSearch string `json:"normalizedSearch"`
	TimeMS           int64  `json:"time"`
	Error            string `json:"error,omitempty"`
	Warning          string `json:"warning,omitempty"`
	Info             string `json:"info,omitempty"`
	LimitReached     bool   `json:"limitReached"`

	Matches []*Location `json:"matches"`
}

// Count returns the number of matches.
func (r *SearchResult) Count() int {
	return len(r.Matches)
}

// SortMatches applies the canonical result order: rank descending, then
// display name ascending.
func (r *SearchResult) SortMatches() {
	sort.SliceStable(r.Matches, func(i, j int) bool {
		a, b := r.Matches[i], r.Matches[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		return a.DisplayName() < b.DisplayName()
	})
}

// locationJSON is the serialized form of a match, adding the computed
// display name to the Location fields.
type locationJSON struct {
	Location
	DisplayName string `json:"displayName"`
}

// MarshalJSON emits the result with a count field and per-match display names.
func (r *SearchResult) MarshalJSON() ([]byte, error) {
	matches := make([]locationJSON, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = locationJSON{Location: *m, DisplayName: m.DisplayName()}
	}

	type alias struct {
		OriginalSearch   string         `json:"originalSearch"`
		NormalizedSearch string         `json:"normalizedSearch"`
		TimeMS           int64          `json:"time"`
		Count            int            `json:"count"`
		LimitReached     bool           `json:"limitReached"`
		Matches          []locationJSON `json:"matches"`
		Error            string         `json:"error,omitempty"`
		Warning          string         `json:"warning,omitempty"`
		Info             string         `json:"info,omitempty"`
	}

	return json.Marshal(alias{
		OriginalSearch:   r.OriginalSearch,
		NormalizedSearch: r.NormalizedSearch,
		TimeMS:           r.TimeMS,
		Count:            len(matches),
		LimitReached:     r.LimitReached,
		Matches:          matches,
		Error:            r.Error,
		Warning:          r.Warning,
		Info:             r.Info,
	})
}
