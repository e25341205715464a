package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/db"
)

// importColumns matches the atlas_import staging table, which mirrors
// atlas2 minus the serial key.
var importColumns = []string{
	"key_name", "name", "variant", "admin2", "admin1", "country",
	"latitude", "longitude", "elevation", "time_zone", "postal_code",
	"rank", "feature_type", "sound", "source", "geonames_id",
}

// BulkImport loads a batch of gazetteer rows through the staging table:
// a COPY-backed upsert keyed on geonames_id, then a merge of rows atlas2
// has not seen. Postgres only; the row-at-a-time writeback covers SQLite.
func BulkImport(ctx context.Context, pool db.Pool, locs []*atlas.Location) (int64, error) {
	rows := make([][]any, 0, len(locs))
	for _, loc := range locs {
		if loc.GeonameID == 0 {
			continue
		}
		rows = append(rows, locationArgs(loc))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if _, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "atlas_import",
		Columns:      importColumns,
		ConflictKeys: []string{"geonames_id"},
	}, rows); err != nil {
		return 0, err
	}

	tag, err := pool.Exec(ctx,
		`INSERT INTO atlas2 (key_name, name, variant, admin2, admin1, country,
		   latitude, longitude, elevation, time_zone, postal_code, rank,
		   feature_type, sound, source, geonames_id)
		 SELECT i.key_name, i.name, i.variant, i.admin2, i.admin1, i.country,
		   i.latitude, i.longitude, i.elevation, i.time_zone, i.postal_code,
		   i.rank, i.feature_type, i.sound, i.source, i.geonames_id
		 FROM atlas_import i
		 WHERE NOT EXISTS (
		   SELECT 1 FROM atlas2 a WHERE a.geonames_id = i.geonames_id)`)
	if err != nil {
		return 0, eris.Wrap(err, "store: merging imported rows")
	}
	return tag.RowsAffected(), nil
}

// AltName is one curated alternate-name entry: Alt resolves to the
// place whose primary name is Canonical. Misspelling entries still
// match but display under the canonical name.
type AltName struct {
	Alt         string
	Canonical   string
	Misspelling bool
	ItemNo      int64
}

var altNameColumns = []string{
	"alt_key_name", "atlas_key_name", "alt_name", "misspelling", "specific_item2",
}

// BulkImportAltNames COPYs curated alternate names into atlas_alt_names.
// The table has no unique key, so the caller decides when to re-run.
func BulkImportAltNames(ctx context.Context, pool db.Pool, names []AltName) (int64, error) {
	rows := make([][]any, 0, len(names))
	for _, n := range names {
		if n.Alt == "" || (n.Canonical == "" && n.ItemNo == 0) {
			continue
		}
		misspelling := "N"
		if n.Misspelling {
			misspelling = "Y"
		}
		rows = append(rows, []any{
			atlas.Simplify(n.Alt, false),
			atlas.Simplify(n.Canonical, false),
			n.Alt,
			misspelling,
			n.ItemNo,
		})
	}
	return db.CopyFrom(ctx, pool, "atlas_alt_names", altNameColumns, rows)
}
