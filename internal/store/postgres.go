package store

import (
	"context"

	"github.com/kshetline/svc-api/internal/db"
)

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS atlas2 (
		item_no     BIGSERIAL PRIMARY KEY,
		key_name    TEXT NOT NULL,
		name        TEXT NOT NULL,
		variant     TEXT NOT NULL DEFAULT '',
		admin2      TEXT NOT NULL DEFAULT '',
		admin1      TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		elevation   INTEGER NOT NULL DEFAULT 0,
		time_zone   TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		rank        INTEGER NOT NULL DEFAULT 0,
		feature_type TEXT NOT NULL DEFAULT 'P.PPL',
		sound       TEXT NOT NULL DEFAULT '',
		source      INTEGER NOT NULL DEFAULT 0,
		geonames_id BIGINT NOT NULL DEFAULT 0
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
		specific_item2 BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alt_names_key ON atlas_alt_names (alt_key_name)`,
	`CREATE TABLE IF NOT EXISTS atlas_searches2 (
		search_string TEXT PRIMARY KEY,
		extended      BOOLEAN NOT NULL DEFAULT FALSE,
		hits          INTEGER NOT NULL DEFAULT 1,
		matches       INTEGER NOT NULL DEFAULT 0,
		time_stamp    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS atlas_log (
		time_stamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		warning    BOOLEAN NOT NULL DEFAULT FALSE,
		message    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS zone_lookup (
		location TEXT PRIMARY KEY,
		zones    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS atlas_import (
		key_name    TEXT NOT NULL,
		name        TEXT NOT NULL,
		variant     TEXT NOT NULL DEFAULT '',
		admin2      TEXT NOT NULL DEFAULT '',
		admin1      TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT '',
		latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		elevation   INTEGER NOT NULL DEFAULT 0,
		time_zone   TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		rank        INTEGER NOT NULL DEFAULT 0,
		feature_type TEXT NOT NULL DEFAULT 'P.PPL',
		sound       TEXT NOT NULL DEFAULT '',
		source      INTEGER NOT NULL DEFAULT 0,
		geonames_id BIGINT PRIMARY KEY
	)`,
}

// NewPostgres builds a Store backed by a pgx connection pool.
func NewPostgres(pool db.Pool, states StateMatcher) *Service {
	return &Service{
		run:    pgxRunner{pool: pool},
		states: states,
		ddl:    postgresDDL,
	}
}

type pgxRunner struct {
	pool db.Pool
}

func (r pgxRunner) query(ctx context.Context, sqlText string, args ...any) (rowSet, error) {
	rows, err := r.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r pgxRunner) queryRow(ctx context.Context, sqlText string, args ...any) rowScanner {
	return r.pool.QueryRow(ctx, sqlText, args...)
}

func (r pgxRunner) exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	tag, err := r.pool.Exec(ctx, sqlText, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r pgxRunner) ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
