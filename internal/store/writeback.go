package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

// SaveLocations writes remote-sourced and update-flagged locations back
// to the database, so each remote hit is only ever fetched once. Returns
// the number of rows inserted or updated.
func (s *Service) SaveLocations(ctx context.Context, locs []*atlas.Location) (int, error) {
	saved := 0

	for _, loc := range locs {
		if loc == nil || (loc.Source < atlas.MinExternalSource && !loc.UseAsUpdate) {
			continue
		}

		var err error
		if loc.UseAsUpdate && loc.GeonameID != 0 {
			err = s.updateByGeonameID(ctx, loc, &saved)
		} else {
			err = s.saveByKey(ctx, loc, &saved)
		}
		if err != nil {
			return saved, err
		}
	}

	if saved > 0 {
		zap.L().Debug("locations written back", zap.Int("count", saved))
	}
	return saved, nil
}

// updateByGeonameID refreshes the row carrying this GeoNames id. Should
// duplicates have accumulated, the first row wins and the rest go.
func (s *Service) updateByGeonameID(ctx context.Context, loc *atlas.Location, saved *int) error {
	rows, err := s.queryRetry(ctx,
		`SELECT item_no FROM atlas2 WHERE geonames_id = $1 ORDER BY item_no`, loc.GeonameID)
	if err != nil {
		return err
	}

	var itemNos []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return eris.Wrap(err, "store: scanning item number")
		}
		itemNos = append(itemNos, n)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return eris.Wrap(err, "store: reading duplicate rows")
	}

	if len(itemNos) == 0 {
		return s.insertLocation(ctx, loc, saved)
	}

	if err := s.updateLocation(ctx, loc, itemNos[0]); err != nil {
		return err
	}
	*saved++

	for _, n := range itemNos[1:] {
		if _, err := s.run.exec(ctx, `DELETE FROM atlas2 WHERE item_no = $1`, n); err != nil {
			return eris.Wrap(err, "store: deleting duplicate row")
		}
		zap.L().Info("deleted duplicate location row",
			zap.Int64("itemNo", n), zap.Int64("geonamesID", loc.GeonameID))
	}
	return nil
}

// saveByKey inserts the location unless a row for the same place already
// exists: same key and country, within 10 km, and (outside the US and
// Canada) any state, or (inside) the same state.
func (s *Service) saveByKey(ctx context.Context, loc *atlas.Location, saved *int) error {
	key := atlas.Simplify(loc.City, false)
	rows, err := s.queryRetry(ctx,
		`SELECT `+locationColumns+` FROM atlas2 WHERE key_name = $1`, key)
	if err != nil {
		return err
	}

	var found *atlas.Location
	for rows.Next() {
		row, err := scanLocation(rows)
		if err != nil {
			rows.Close()
			return err
		}
		if row.Country != loc.Country {
			continue
		}
		if atlas.HaversineKm(row.Latitude, row.Longitude, loc.Latitude, loc.Longitude) >= atlas.CloseDistanceKm {
			continue
		}
		if (loc.Country == "USA" || loc.Country == "CAN") && row.State != loc.State {
			continue
		}
		found = row
		break
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return eris.Wrap(err, "store: reading candidate rows")
	}

	switch {
	case found == nil:
		return s.insertLocation(ctx, loc, saved)
	case loc.UseAsUpdate:
		if err := s.updateLocation(ctx, loc, found.ItemNo); err != nil {
			return err
		}
		*saved++
		return nil
	default:
		return s.fillMissingAdmins(ctx, loc, found, saved)
	}
}

// fillMissingAdmins completes county/state columns an earlier import
// left blank, without touching anything else.
func (s *Service) fillMissingAdmins(ctx context.Context, loc, row *atlas.Location, saved *int) error {
	admin2, admin1 := row.County, row.State
	if admin2 == "" && loc.County != "" {
		admin2 = loc.County
	}
	if admin1 == "" && loc.State != "" {
		admin1 = loc.State
	}
	if admin2 == row.County && admin1 == row.State {
		return nil
	}

	_, err := s.run.exec(ctx,
		`UPDATE atlas2 SET admin2 = $1, admin1 = $2 WHERE item_no = $3`,
		admin2, admin1, row.ItemNo)
	if err != nil {
		return eris.Wrap(err, "store: filling admin columns")
	}
	*saved++
	return nil
}

func (s *Service) insertLocation(ctx context.Context, loc *atlas.Location, saved *int) error {
	_, err := s.run.exec(ctx,
		`INSERT INTO atlas2 (key_name, name, variant, admin2, admin1, country,
		   latitude, longitude, elevation, time_zone, postal_code, rank,
		   feature_type, sound, source, geonames_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		locationArgs(loc)...)
	if err != nil {
		return eris.Wrap(err, "store: inserting location")
	}
	*saved++
	return nil
}

func (s *Service) updateLocation(ctx context.Context, loc *atlas.Location, itemNo int64) error {
	args := append(locationArgs(loc), itemNo)
	_, err := s.run.exec(ctx,
		`UPDATE atlas2 SET key_name = $1, name = $2, variant = $3, admin2 = $4,
		   admin1 = $5, country = $6, latitude = $7, longitude = $8,
		   elevation = $9, time_zone = $10, postal_code = $11, rank = $12,
		   feature_type = $13, sound = $14, source = $15, geonames_id = $16
		 WHERE item_no = $17`,
		args...)
	if err != nil {
		return eris.Wrap(err, "store: updating location")
	}
	return nil
}

func locationArgs(loc *atlas.Location) []any {
	return []any{
		atlas.Simplify(loc.City, false),
		loc.City,
		atlas.Simplify(loc.Variant, true),
		loc.County,
		loc.State,
		loc.Country,
		loc.Latitude,
		loc.Longitude,
		loc.Elevation,
		loc.Zone,
		loc.Zip,
		clampStoredRank(loc),
		loc.PlaceType,
		atlas.Soundex(loc.City),
		loc.Source,
		loc.GeonameID,
	}
}

// Stored rank keeps the postal rank only for postal-sourced rows.
func clampStoredRank(loc *atlas.Location) int {
	if loc.Zip != "" {
		return atlas.ZipRank
	}
	return clampRank(loc.Rank)
}
