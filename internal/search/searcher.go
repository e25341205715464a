// Package search orchestrates the full resolution pipeline: parse the
// query, run the local match ladder, consult the remote gazetteers when
// warranted, reconcile everything, and write fresh data back.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/gazetteer"
	"github.com/kshetline/svc-api/internal/store"
	"github.com/kshetline/svc-api/internal/zones"
)

// RemoteMode controls whether and how remote gazetteers are consulted.
type RemoteMode string

const (
	RemoteSkip     RemoteMode = "skip"
	RemoteNormal   RemoteMode = "normal"
	RemoteExtend   RemoteMode = "extend"
	RemoteForced   RemoteMode = "forced"
	RemoteOnly     RemoteMode = "only"
	RemoteGeonames RemoteMode = "geonames"
	RemoteGetty    RemoteMode = "getty"
)

// ParseRemoteMode maps a query-string value to a RemoteMode, defaulting
// to skip on anything unrecognized.
func ParseRemoteMode(s string) RemoteMode {
	switch RemoteMode(strings.ToLower(strings.TrimSpace(s))) {
	case RemoteNormal, RemoteExtend, RemoteForced, RemoteOnly, RemoteGeonames, RemoteGetty:
		return RemoteMode(strings.ToLower(strings.TrimSpace(s)))
	default:
		return RemoteSkip
	}
}

// remoteRequested reports whether this mode is an extended search for
// search-log purposes.
func (m RemoteMode) remoteRequested() bool {
	return m != RemoteSkip && m != RemoteNormal
}

// ignoresRecency reports whether this mode consults remote sources even
// when the search log says the query is fresh. extend is deliberately
// absent: it asks for remote data but still defers to a recent
// extended search.
func (m RemoteMode) ignoresRecency() bool {
	return m == RemoteForced || m == RemoteOnly || m == RemoteGeonames || m == RemoteGetty
}

// looseParseBelowVersion: clients older than this get the forgiving
// parser that splits trailing state tokens.
const looseParseBelowVersion = 3

// gazetteerMaxAge triggers a best-effort dictionary reload.
const gazetteerMaxAge = 24 * time.Hour

const supplementaryUnavailable = "Supplementary data temporarily unavailable."

// Options carries the per-request knobs.
type Options struct {
	Version int
	Remote  RemoteMode
	Limit   int
	Client  string
	NoTrace bool
}

// Searcher wires the pipeline together.
type Searcher struct {
	store    store.Store
	zones    *zones.Resolver
	geonames geoNamesAPI
	getty    gettyAPI

	geonamesTimeout time.Duration
	gettyTimeout    time.Duration

	gnGuard *guard
	gtGuard *guard
}

// Config tunes a Searcher.
type Config struct {
	GeonamesTimeout time.Duration // default 20 s
	GettyTimeout    time.Duration // default 110 s
}

// New builds a Searcher. Either adapter may be nil, which simply
// disables that source.
func New(st store.Store, zr *zones.Resolver, gn geoNamesAPI, gt gettyAPI, cfg Config) *Searcher {
	if cfg.GeonamesTimeout <= 0 {
		cfg.GeonamesTimeout = 20 * time.Second
	}
	if cfg.GettyTimeout <= 0 {
		cfg.GettyTimeout = 110 * time.Second
	}
	return &Searcher{
		store:           st,
		zones:           zr,
		geonames:        gn,
		getty:           gt,
		geonamesTimeout: cfg.GeonamesTimeout,
		gettyTimeout:    cfg.GettyTimeout,
		gnGuard:         newGuard("geonames"),
		gtGuard:         newGuard("getty"),
	}
}

// Search resolves one query end to end. All outcomes are reported
// through the SearchResult; the error cases a caller can act on are
// carried in its Error field.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) *atlas.SearchResult {
	started := time.Now()
	gazetteer.ReinitIfStale(gazetteerMaxAge)
	g := gazetteer.Instance()

	if opts.Limit < 1 {
		opts.Limit = 75
	}

	mode := atlas.ParseStrict
	if opts.Version < looseParseBelowVersion {
		mode = atlas.ParseLoose
	}
	parsed := atlas.ParseSearchString(query, mode, g)

	result := &atlas.SearchResult{
		OriginalSearch:   query,
		NormalizedSearch: parsed.NormalizedSearch,
	}

	extendedReq := opts.Remote.remoteRequested()
	recent, err := s.store.HasSearchBeenDoneRecently(ctx, parsed.NormalizedSearch, extendedReq)
	dbError := err != nil
	if dbError {
		zap.L().Warn("search log lookup failed", zap.Error(err))
	}

	consultRemote := opts.Remote.ignoresRecency() || (opts.Remote != RemoteSkip && !recent)

	local := atlas.NewLocationMap()
	skipLocal := opts.Remote == RemoteOnly || opts.Remote == RemoteGeonames || opts.Remote == RemoteGetty
	if !skipLocal {
		local, err = s.store.Search(ctx, parsed, consultRemote || extendedReq, opts.Limit)
		if err != nil {
			// One retry; transient pool hiccups resolve on the second acquire.
			zap.L().Warn("local search failed, retrying", zap.Error(err))
			local, err = s.store.Search(ctx, parsed, consultRemote || extendedReq, opts.Limit)
		}
		if err != nil {
			dbError = true
			local = atlas.NewLocationMap()
			result.Error = "local data unavailable"
			zap.L().Error("local search failed", zap.Error(err))
		}
	}

	onlyBySound := local.Len() > 0
	for _, loc := range local.Values() {
		if !loc.MatchedBySound {
			onlyBySound = false
			break
		}
	}

	maps := []*atlas.LocationMap{local}
	if consultRemote {
		remotes := s.consultRemotes(ctx, g, parsed, opts.Remote, result)
		anyRemote := false
		for _, m := range remotes {
			if m.Len() > 0 {
				anyRemote = true
			}
		}
		// A remote hit outranks a local map that only matched by sound.
		if anyRemote && onlyBySound {
			maps = maps[:0]
		}
		maps = append(maps, remotes...)
	}

	merged := atlas.MergeAndDedup(opts.Limit, maps...)
	result.Matches = merged.Matches
	result.LimitReached = merged.LimitReached
	for _, c := range merged.Conflicts {
		appendLine(&result.Warning, c)
	}

	if s.zones != nil {
		s.zones.FillZones(ctx, result.Matches)
	}
	for _, loc := range result.Matches {
		if loc.FlagCode == "" {
			loc.FlagCode = g.FlagCode(loc.Country)
		}
	}
	result.SortMatches()

	s.addAdvisories(g, parsed, result)

	if !dbError && !opts.NoTrace {
		if _, err := s.store.SaveLocations(ctx, result.Matches); err != nil {
			zap.L().Error("location writeback failed", zap.Error(err))
		}
		if err := s.store.LogSearchResults(ctx, parsed.NormalizedSearch,
			extendedReq || consultRemote, len(result.Matches)); err != nil {
			zap.L().Warn("search log write failed", zap.Error(err))
		}
	}

	result.TimeMS = time.Since(started).Milliseconds()
	zap.L().Info("search completed",
		zap.String("query", parsed.NormalizedSearch),
		zap.String("remote", string(opts.Remote)),
		zap.String("client", opts.Client),
		zap.Int("matches", len(result.Matches)),
		zap.Int64("ms", result.TimeMS))

	return result
}

// addAdvisories attaches the celestial warning and, for empty results,
// query-rewriting suggestions.
func (s *Searcher) addAdvisories(g *gazetteer.Gazetteer, parsed *atlas.ParsedSearchString, result *atlas.SearchResult) {
	if parsed.TargetCity != "" && g.IsCelestial(parsed.TargetCity) {
		appendLine(&result.Warning, fmt.Sprintf(
			"%q is a celestial object, not a place on Earth.", parsed.TargetCity))
	}

	if len(result.Matches) == 0 {
		for _, sugg := range Suggestions(g, result.OriginalSearch) {
			appendLine(&result.Warning, sugg)
		}
	}
}

func appendLine(dst *string, line string) {
	if line == "" {
		return
	}
	if *dst != "" {
		*dst += "\n"
	}
	*dst += line
}
