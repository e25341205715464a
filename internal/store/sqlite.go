package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS atlas2 (
		item_no     INTEGER PRIMARY KEY AUTOINCREMENT,
		key_name    TEXT NOT NULL,
		name        TEXT NOT NULL,
		variant     TEXT NOT NULL DEFAULT '',
		admin2      TEXT NOT NULL DEFAULT '',
		admin1      TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		latitude    REAL NOT NULL DEFAULT 0,
		longitude   REAL NOT NULL DEFAULT 0,
		elevation   INTEGER NOT NULL DEFAULT 0,
		time_zone   TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		rank        INTEGER NOT NULL DEFAULT 0,
		feature_type TEXT NOT NULL DEFAULT 'P.PPL',
		sound       TEXT NOT NULL DEFAULT '',
		source      INTEGER NOT NULL DEFAULT 0,
		geonames_id INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_atlas2_key_name ON atlas2 (key_name)`,
	`CREATE INDEX IF NOT EXISTS idx_atlas2_variant ON atlas2 (variant)`,
	`CREATE INDEX IF NOT EXISTS idx_atlas2_postal_code ON atlas2 (postal_code)`,
	`CREATE INDEX IF NOT EXISTS idx_atlas2_sound ON atlas2 (sound)`,
	`CREATE INDEX IF NOT EXISTS idx_atlas2_geonames_id ON atlas2 (geonames_id)`,
	`CREATE TABLE IF NOT EXISTS atlas_alt_names (
		alt_key_name   TEXT NOT NULL,
		atlas_key_name TEXT NOT NULL,
		alt_name       TEXT NOT NULL,
		misspelling    TEXT NOT NULL DEFAULT 'N',
		specific_item2 INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alt_names_key ON atlas_alt_names (alt_key_name)`,
	`CREATE TABLE IF NOT EXISTS atlas_searches2 (
		search_string TEXT PRIMARY KEY,
		extended      BOOLEAN NOT NULL DEFAULT FALSE,
		hits          INTEGER NOT NULL DEFAULT 1,
		matches       INTEGER NOT NULL DEFAULT 0,
		time_stamp    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS atlas_log (
		time_stamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		warning    BOOLEAN NOT NULL DEFAULT FALSE,
		message    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS zone_lookup (
		location TEXT PRIMARY KEY,
		zones    TEXT NOT NULL
	)`,
}

// OpenSQLite opens (creating if needed) a SQLite database file and
// returns a Store backed by it. Intended for development and standalone
// use; production deployments run on PostgreSQL.
func OpenSQLite(path string, states StateMatcher) (*Service, error) {
	handle, err := sql.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, eris.Wrap(err, "store: opening sqlite database")
	}
	// SQLite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY surprises.
	handle.SetMaxOpenConns(1)

	return NewSQLite(handle, states), nil
}

// NewSQLite builds a Store over an already-open database/sql handle.
func NewSQLite(handle *sql.DB, states StateMatcher) *Service {
	return &Service{
		run:    sqlRunner{db: handle},
		states: states,
		ddl:    sqliteDDL,
	}
}

type sqlRunner struct {
	db *sql.DB
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (r sqlRunner) query(ctx context.Context, sqlText string, args ...any) (rowSet, error) {
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (r sqlRunner) queryRow(ctx context.Context, sqlText string, args ...any) rowScanner {
	return r.db.QueryRowContext(ctx, sqlText, args...)
}

func (r sqlRunner) exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (r sqlRunner) ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
