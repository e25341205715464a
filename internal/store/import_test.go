package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshetline/svc-api/internal/atlas"
)

func expectImportUpsert(mock pgxmock.PgxPoolIface, copied int) {
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_atlas_import"}, importColumns).
		WillReturnResult(int64(copied))
	mock.ExpectExec(`INSERT INTO "atlas_import"`).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(copied)))
	mock.ExpectCommit()
}

func TestBulkImport_StagesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectImportUpsert(mock, 2)
	mock.ExpectExec(`INSERT INTO atlas2`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	locs := []*atlas.Location{
		{City: "Nashua", State: "NH", Country: "USA", Latitude: 42.7575,
			Longitude: -71.4644, Rank: 3, PlaceType: "P.PPL", GeonameID: 5089178},
		{City: "Keene", State: "NH", Country: "USA", Latitude: 42.9337,
			Longitude: -72.2781, Rank: 2, PlaceType: "P.PPL", GeonameID: 5085788},
	}

	n, err := BulkImport(context.Background(), mock, locs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkImport_SkipsRowsWithoutGeonameID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// No expectations: the only candidate row is dropped before any SQL.
	n, err := BulkImport(context.Background(), mock, []*atlas.Location{
		{City: "Nowhere", Country: "USA"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkImportAltNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"atlas_alt_names"}, altNameColumns).
		WillReturnResult(2)

	entries := []AltName{
		{Alt: "Big Apple", Canonical: "New York"},
		{Alt: "Nashaw", Canonical: "Nashua", Misspelling: true},
		{Alt: "", Canonical: "Dropped"},
	}

	n, err := BulkImportAltNames(context.Background(), mock, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
