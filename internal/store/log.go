package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// HasSearchBeenDoneRecently reports whether an equivalent search was
// logged within the recency window. An extended search satisfies a later
// plain request, but a plain search does not satisfy a later extended
// one.
func (s *Service) HasSearchBeenDoneRecently(ctx context.Context, normalizedSearch string, extended bool) (bool, error) {
	var (
		wasExtended bool
		ts          time.Time
	)
	err := s.run.queryRow(ctx,
		`SELECT extended, time_stamp FROM atlas_searches2 WHERE search_string = $1`,
		normalizedSearch).Scan(&wasExtended, &ts)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "store: reading search log")
	}

	return searchIsRecent(ts) && (wasExtended || !extended), nil
}

// LogSearchResults records a completed search, bumping the hit count on
// repeats. The extended flag is sticky: once a search has gone remote,
// the log remembers that.
func (s *Service) LogSearchResults(ctx context.Context, normalizedSearch string, extended bool, matchCount int) error {
	_, err := s.run.exec(ctx,
		`INSERT INTO atlas_searches2 (search_string, extended, hits, matches, time_stamp)
		 VALUES ($1, $2, 1, $3, CURRENT_TIMESTAMP)
		 ON CONFLICT (search_string) DO UPDATE SET
		   hits = atlas_searches2.hits + 1,
		   matches = excluded.matches,
		   extended = atlas_searches2.extended OR excluded.extended,
		   time_stamp = CURRENT_TIMESTAMP`,
		normalizedSearch, extended, matchCount)
	if err != nil {
		return eris.Wrap(err, "store: logging search")
	}
	return nil
}

// ZonesForKey returns the comma-separated IANA zone list for a
// simplified country[:state][:county] key, or "" when none is recorded.
func (s *Service) ZonesForKey(ctx context.Context, key string) (string, error) {
	var zones string
	err := s.run.queryRow(ctx,
		`SELECT zones FROM zone_lookup WHERE location = $1`, key).Scan(&zones)
	if isNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "store: zone lookup")
	}
	return zones, nil
}

// PutZone records or replaces the zone list for a lookup key. Used by
// the schema seeding command.
func (s *Service) PutZone(ctx context.Context, key, zones string) error {
	_, err := s.run.exec(ctx,
		`INSERT INTO zone_lookup (location, zones) VALUES ($1, $2)
		 ON CONFLICT (location) DO UPDATE SET zones = excluded.zones`,
		key, zones)
	if err != nil {
		return eris.Wrap(err, "store: storing zone lookup")
	}
	return nil
}

// LogMessage appends a line to the service log table.
func (s *Service) LogMessage(ctx context.Context, warning bool, message string) error {
	_, err := s.run.exec(ctx,
		`INSERT INTO atlas_log (time_stamp, warning, message) VALUES (CURRENT_TIMESTAMP, $1, $2)`,
		warning, message)
	if err != nil {
		return eris.Wrap(err, "store: writing log entry")
	}
	return nil
}
