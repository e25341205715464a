// Package store persists locations, search history, and the zone lookup
// table, and runs the staged local match ladder against them. The same
// logic serves PostgreSQL (via pgx) and SQLite (for standalone use):
// both engines accept $1-style placeholders, so the SQL is shared and
// only the row plumbing differs per backend.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/kshetline/svc-api/internal/atlas"
)

// StateMatcher decides whether a row's state/country is compatible with
// what the user asked for. The gazetteer provides the real one.
type StateMatcher interface {
	CloseMatchForState(target, state, country string) bool
}

// Store is the persistence surface the search orchestrator relies on.
type Store interface {
	Search(ctx context.Context, parsed *atlas.ParsedSearchString, extended bool, maxMatches int) (*atlas.LocationMap, error)
	HasSearchBeenDoneRecently(ctx context.Context, normalizedSearch string, extended bool) (bool, error)
	LogSearchResults(ctx context.Context, normalizedSearch string, extended bool, matchCount int) error
	SaveLocations(ctx context.Context, locs []*atlas.Location) (int, error)
	ZonesForKey(ctx context.Context, key string) (string, error)
	LogMessage(ctx context.Context, warning bool, message string) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}

// rowScanner is the common surface of pgx.Row and sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// rowSet is the common surface of pgx.Rows and a wrapped sql.Rows.
type rowSet interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// runner abstracts the two database backends.
type runner interface {
	query(ctx context.Context, sqlText string, args ...any) (rowSet, error)
	queryRow(ctx context.Context, sqlText string, args ...any) rowScanner
	exec(ctx context.Context, sqlText string, args ...any) (int64, error)
	ping(ctx context.Context) error
}

// Service implements Store over either backend.
type Service struct {
	run    runner
	states StateMatcher
	ddl    []string
}

var _ Store = (*Service)(nil)

func isNoRows(err error) bool {
	return eris.Is(err, pgx.ErrNoRows) || eris.Is(err, sql.ErrNoRows)
}

// Migrate creates the schema when it does not already exist.
func (s *Service) Migrate(ctx context.Context) error {
	for _, stmt := range s.ddl {
		if _, err := s.run.exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "store: applying schema")
		}
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.run.ping(ctx); err != nil {
		return eris.Wrap(err, "store: ping")
	}
	return nil
}

// searchRecencyMonths is how long a logged search keeps suppressing
// remote lookups.
const searchRecencyMonths = 12

func searchIsRecent(ts time.Time) bool {
	return ts.After(time.Now().AddDate(0, -searchRecencyMonths, 0))
}
