package atlas

import (
	"fmt"
	"sort"
	"strings"
)

// MergeResult holds the reconciled output of MergeAndDedup.
type MergeResult struct {
	Matches      []*Location
	LimitReached bool
	// Conflicts carries warning lines for locations that collide
	// geographically but disagree on administrative placement.
	Conflicts []string
}

type pairOutcome int

const (
	keepBoth pairOutcome = iota
	keepFirst
	keepSecond
)

// MergeAndDedup unions dictionary-keyed results from the local database and
// each remote source, reconciles locations that share a key, and returns the
// survivors in key-sorted order truncated to limit. Maps are consumed in
// argument order, so the local map should come first.
func MergeAndDedup(limit int, maps ...*LocationMap) *MergeResult {
	buckets := make(map[string][]*Location)
	var order []string

	for _, lm := range maps {
		if lm == nil {
			continue
		}
		for _, key := range lm.Keys() {
			base := BaseKey(key)
			if _, seen := buckets[base]; !seen {
				order = append(order, base)
			}
			buckets[base] = append(buckets[base], lm.Get(key))
		}
	}

	sort.Strings(order)

	result := &MergeResult{}
	warn := func(msg string) { result.Conflicts = append(result.Conflicts, msg) }

	for _, base := range order {
		bucket := buckets[base]
		reconcileBucket(bucket, warn)

		for _, loc := range bucket {
			if loc == nil {
				continue
			}
			result.Matches = append(result.Matches, loc)
			if limit > 0 && len(result.Matches) > limit {
				result.LimitReached = true
				result.Matches = result.Matches[:limit]
				return result
			}
		}
	}

	return result
}

// reconcileBucket pairwise-reconciles every surviving pair in a bucket,
// marking eliminated slots nil. Traversal is in index order, so the outcome
// is deterministic for a given input ordering.
func reconcileBucket(bucket []*Location, warn func(string)) {
	for i := 0; i < len(bucket); i++ {
		if bucket[i] == nil {
			continue
		}
		for j := i + 1; j < len(bucket); j++ {
			if bucket[j] == nil {
				continue
			}
			switch reconcilePair(bucket[i], bucket[j], warn) {
			case keepFirst:
				bucket[j] = nil
			case keepSecond:
				bucket[i] = nil
			}
			if bucket[i] == nil {
				break
			}
		}
	}
}

func pplFamily(t string) bool { return strings.HasPrefix(t, "P.PPL") }
func admFamily(t string) bool { return strings.HasPrefix(t, "A.ADM") }

// reconcilePair applies the pairwise rules to two locations sharing a key.
func reconcilePair(l1, l2 *Location, warn func(string)) pairOutcome {
	dist := l1.DistanceKm(l2)
	near := dist < CloseDistanceKm

	// Place-type fusion: an administrative division and a populated place at
	// the same site count as the same type; a generic P.PPL upgrades to the
	// more specific P.PPLx it collides with.
	sameType := l1.PlaceType == l2.PlaceType
	if !sameType && pplFamily(l1.PlaceType) && pplFamily(l2.PlaceType) {
		sameType = true
		if l1.PlaceType == "P.PPL" {
			l1.PlaceType = l2.PlaceType
		} else if l2.PlaceType == "P.PPL" {
			l2.PlaceType = l1.PlaceType
		}
	}
	if !sameType && near &&
		((admFamily(l1.PlaceType) && pplFamily(l2.PlaceType)) ||
			(pplFamily(l1.PlaceType) && admFamily(l2.PlaceType))) {
		sameType = true
	}

	// Zone ambiguity: a confident zone overrides an identical site's "?" zone.
	if near {
		if strings.HasSuffix(l1.Zone, "?") && l2.Zone != "" && !strings.HasSuffix(l2.Zone, "?") {
			l1.Zone = l2.Zone
		} else if strings.HasSuffix(l2.Zone, "?") && l1.Zone != "" && !strings.HasSuffix(l1.Zone, "?") {
			l2.Zone = l1.Zone
		}
	}

	// Same remote identity: keep the older (lower-source) row, promote its
	// rank, carry the zip, and stamp it with the newer source value so later
	// comparisons and the writeback see the freshest provenance.
	if l1.GeonameID != 0 && l1.GeonameID == l2.GeonameID {
		survivor, loser, outcome := l1, l2, keepFirst
		if l2.Source < l1.Source {
			survivor, loser, outcome = l2, l1, keepSecond
		}
		newer := max(l1.Source, l2.Source)

		if loser.Rank > survivor.Rank {
			survivor.Rank = loser.Rank
		}
		if survivor.Zip == "" && loser.Zip != "" {
			survivor.Zip = loser.Zip
		}
		survivor.UseAsUpdate = !survivor.IsCloseMatch(loser)
		survivor.Source = newer
		return outcome
	}

	// A peak beats the mountain it stands on.
	if near {
		if l1.PlaceType == "T.PK" && l2.PlaceType == "T.MT" {
			return keepFirst
		}
		if l1.PlaceType == "T.MT" && l2.PlaceType == "T.PK" {
			return keepSecond
		}
	}

	// Genuinely different kinds of place never collapse.
	if !sameType {
		return keepBoth
	}

	if !eqci(l1.State, l2.State) {
		if near {
			warn(fmt.Sprintf("Conflicting states for %s: %s vs. %s", l1.City, l1.State, l2.State))
		}
		return disambiguate(l1, l2, l1.State, l2.State, func(loc *Location) { loc.ShowState = true })
	}

	if !eqci(l1.County, l2.County) {
		return disambiguate(l1, l2, l1.County, l2.County, func(loc *Location) { loc.ShowCounty = true })
	}

	// Same type, same admin placement: higher rank wins; a zip breaks ties;
	// a local row beats a remote one but adopts the remote's higher rank.
	if (l1.Source < MinExternalSource) != (l2.Source < MinExternalSource) {
		survivor, loser, outcome := l1, l2, keepFirst
		if l2.Source < MinExternalSource {
			survivor, loser, outcome = l2, l1, keepSecond
		}
		if loser.Rank > survivor.Rank {
			survivor.Rank = loser.Rank
		}
		return outcome
	}
	if l1.Rank != l2.Rank {
		if l1.Rank > l2.Rank {
			return keepFirst
		}
		return keepSecond
	}
	if (l1.Zip != "") != (l2.Zip != "") {
		if l1.Zip != "" {
			return keepFirst
		}
		return keepSecond
	}
	return keepFirst
}

// disambiguate resolves a pair that disagrees on a single admin field: the
// higher-ranked side wins, a populated field beats an empty one, and a true
// tie keeps both with the display hint set on each.
func disambiguate(l1, l2 *Location, f1, f2 string, mark func(*Location)) pairOutcome {
	if l1.Rank != l2.Rank {
		if l1.Rank > l2.Rank {
			return keepFirst
		}
		return keepSecond
	}
	if f1 == "" && f2 != "" {
		return keepSecond
	}
	if f2 == "" && f1 != "" {
		return keepFirst
	}
	mark(l1)
	mark(l2)
	return keepBoth
}
