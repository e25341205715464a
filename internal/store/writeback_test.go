package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshetline/svc-api/internal/atlas"
)

// anyArgs builds n wildcard matchers; pgxmock treats a missing WithArgs
// as expecting zero arguments, not any.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func remoteNashua() *atlas.Location {
	return &atlas.Location{
		City: "Nashua", County: "Hillsborough", State: "NH", Country: "USA",
		Latitude: 42.7654, Longitude: -71.4676, Elevation: 41,
		Zone: "America/New_York", Rank: 3, PlaceType: "P.PPL",
		Source: atlas.SourceGeonamesGeneral, GeonameID: 5088905,
	}
}

func TestSaveLocations_SkipsLocalRows(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	local := remoteNashua()
	local.Source = 0

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{local, nil})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLocations_InsertsNewRemoteRow(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	mock.ExpectQuery(`FROM atlas2 WHERE key_name = \$1`).WithArgs("NASHUA").
		WillReturnRows(pgxmock.NewRows(locationCols))
	mock.ExpectExec(`INSERT INTO atlas2`).
		WithArgs("NASHUA", "Nashua", "", "Hillsborough", "NH", "USA",
			42.7654, -71.4676, 41.0, "America/New_York", "", 3, "P.PPL", "N200",
			atlas.SourceGeonamesGeneral, int64(5088905)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{remoteNashua()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLocations_ExistingCloseRowFillsAdmins(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	// Existing row with blank admin columns, 0.5 km away.
	existing := pgxmock.NewRows(locationCols).AddRow(
		int64(9), "NASHUA", "Nashua", "", "", "NH", "USA",
		42.77, -71.4676, 41, "America/New_York", "", 3, "P.PPL", 0, int64(0))
	mock.ExpectQuery(`FROM atlas2 WHERE key_name = \$1`).WithArgs("NASHUA").
		WillReturnRows(existing)
	mock.ExpectExec(`UPDATE atlas2 SET admin2 = \$1, admin1 = \$2`).
		WithArgs("Hillsborough", "NH", int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{remoteNashua()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLocations_FarRowGetsFreshInsert(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	// Same key, same state, but 300+ km away: a different place.
	far := pgxmock.NewRows(locationCols).AddRow(
		int64(4), "NASHUA", "Nashua", "", "", "NH", "USA",
		45.5, -71.4676, 0, "America/New_York", "", 1, "P.PPL", 0, int64(0))
	mock.ExpectQuery(`FROM atlas2 WHERE key_name = \$1`).WithArgs("NASHUA").
		WillReturnRows(far)
	mock.ExpectExec(`INSERT INTO atlas2`).
		WithArgs(anyArgs(16)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{remoteNashua()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLocations_UpdateByGeonameIDDeletesDuplicates(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	loc := remoteNashua()
	loc.UseAsUpdate = true

	mock.ExpectQuery(`SELECT item_no FROM atlas2 WHERE geonames_id = \$1`).
		WithArgs(int64(5088905)).
		WillReturnRows(pgxmock.NewRows([]string{"item_no"}).AddRow(int64(11)).AddRow(int64(12)).AddRow(int64(13)))
	mock.ExpectExec(`UPDATE atlas2 SET key_name = \$1`).
		WithArgs(anyArgs(17)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM atlas2 WHERE item_no = \$1`).WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM atlas2 WHERE item_no = \$1`).WithArgs(int64(13)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{loc})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLocations_UpdateFlagWithoutIDFallsBackToKey(t *testing.T) {
	mock, svc := newMockStore(t, anyState)

	loc := remoteNashua()
	loc.UseAsUpdate = true
	loc.GeonameID = 0

	existing := pgxmock.NewRows(locationCols).AddRow(
		int64(5), "NASHUA", "Nashua", "", "", "NH", "USA",
		42.7654, -71.4676, 0, "America/New_York", "", 2, "P.PPL", 0, int64(0))
	mock.ExpectQuery(`FROM atlas2 WHERE key_name = \$1`).WithArgs("NASHUA").
		WillReturnRows(existing)
	mock.ExpectExec(`UPDATE atlas2 SET key_name = \$1`).
		WithArgs(anyArgs(17)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := svc.SaveLocations(context.Background(), []*atlas.Location{loc})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
