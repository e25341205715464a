package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

// Ladder stages, in the order they run within a pass.
const (
	stageExact = iota
	stageExactAlt
	stageStartsWith
	stageSoundsLike
)

// A stage never examines more than this multiple of the caller's match
// limit before giving up on the remaining rows.
const examineFactor = 4

const locationColumns = `item_no, key_name, name, variant, admin2, admin1, country,
	latitude, longitude, elevation, time_zone, postal_code, rank, feature_type,
	source, geonames_id`

// Search runs the staged match ladder: two passes (notable places first,
// then everything), four stages per pass, stopping early once a pass has
// produced matches or a postal lookup has run.
func (s *Service) Search(ctx context.Context, parsed *atlas.ParsedSearchString, extended bool, maxMatches int) (*atlas.LocationMap, error) {
	if maxMatches < 1 {
		maxMatches = 1
	}

	lad := &ladder{
		svc:      s,
		parsed:   parsed,
		extended: extended,
		postal:   parsed.PostalCode != "",
		key:      atlas.Simplify(parsed.TargetCity, false),
		limit:    examineFactor * maxMatches,
		examined: map[int64]bool{},
		matches:  atlas.NewLocationMap(),
	}

	for pass := 0; pass < 2; pass++ {
		lad.pass = pass
		for stage := stageExact; stage <= stageSoundsLike; stage++ {
			if err := lad.runStage(ctx, stage); err != nil {
				return nil, err
			}
			if lad.done(stage) {
				return lad.matches, nil
			}
		}
		if lad.matches.Len() > 0 {
			break
		}
	}

	return lad.matches, nil
}

type ladder struct {
	svc      *Service
	parsed   *atlas.ParsedSearchString
	extended bool
	postal   bool
	key      string
	pass     int
	limit    int
	examined map[int64]bool
	matches  *atlas.LocationMap
}

func (l *ladder) done(stage int) bool {
	if l.postal || len(l.examined) >= l.limit {
		return true
	}
	if l.matches.Len() == 0 {
		return false
	}
	return l.pass == 0 || stage >= stageStartsWith
}

// rankCond narrows pass 0 to notable places.
func (l *ladder) rankCond() string {
	if l.pass == 0 {
		return " AND rank > 0"
	}
	return ""
}

func (l *ladder) runStage(ctx context.Context, stage int) error {
	switch stage {
	case stageExact:
		if l.postal {
			return l.collect(ctx, 0, nil,
				`SELECT `+locationColumns+` FROM atlas2 WHERE postal_code = $1`+l.rankCond(), l.parsed.PostalCode)
		}
		if l.key == "" {
			return nil
		}
		return l.collect(ctx, 1, nil,
			`SELECT `+locationColumns+` FROM atlas2 WHERE key_name = $1`+l.rankCond(), l.key)

	case stageExactAlt:
		if l.postal || l.key == "" {
			return nil
		}
		return l.runAltStage(ctx)

	case stageStartsWith:
		if l.postal || l.key == "" {
			return nil
		}
		upper := l.key + "~"
		return l.collect(ctx, 0, nil,
			`SELECT `+locationColumns+` FROM atlas2
			 WHERE ((key_name >= $1 AND key_name < $2) OR (variant >= $1 AND variant < $2))`+l.rankCond(),
			l.key, upper)

	case stageSoundsLike:
		// Sound matching is meaningless for anything with digits in it.
		if l.postal || l.key == "" || strings.ContainsAny(l.parsed.TargetCity, "0123456789") {
			return nil
		}
		return l.collect(ctx, -1, func(loc *atlas.Location) { loc.MatchedBySound = true },
			`SELECT `+locationColumns+` FROM atlas2 WHERE sound = $1`+l.rankCond(),
			atlas.Soundex(l.parsed.TargetCity))
	}

	return nil
}

type altName struct {
	atlasKey    string
	altName     string
	misspelling string
	itemNo      int64
}

func (l *ladder) runAltStage(ctx context.Context) error {
	rows, err := l.svc.queryRetry(ctx,
		`SELECT atlas_key_name, alt_name, misspelling, specific_item2 FROM atlas_alt_names WHERE alt_key_name = $1`,
		l.key)
	if err != nil {
		return err
	}

	var alts []altName
	for rows.Next() {
		var a altName
		if err := rows.Scan(&a.atlasKey, &a.altName, &a.misspelling, &a.itemNo); err != nil {
			rows.Close()
			return eris.Wrap(err, "store: scanning alt name")
		}
		alts = append(alts, a)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return eris.Wrap(err, "store: reading alt names")
	}

	for _, a := range alts {
		mark := func(loc *atlas.Location) {
			loc.MatchedByAlternateName = true
			// A true alternate name (not a misspelling) is what the user
			// actually searched for, so display it.
			if a.misspelling == "N" {
				loc.City = a.altName
			}
		}
		if a.itemNo > 0 {
			if err := l.collect(ctx, 0, mark,
				`SELECT `+locationColumns+` FROM atlas2 WHERE item_no = $1`+l.rankCond(), a.itemNo); err != nil {
				return err
			}
		} else if err := l.collect(ctx, 0, mark,
			`SELECT `+locationColumns+` FROM atlas2 WHERE key_name = $1`+l.rankCond(), a.atlasKey); err != nil {
			return err
		}
	}

	return nil
}

// collect runs one ladder query and folds qualifying rows into the
// accumulated match map.
func (l *ladder) collect(ctx context.Context, rankAdjust int, mark func(*atlas.Location), sqlText string, args ...any) error {
	sqlText += fmt.Sprintf(" LIMIT %d", l.limit)

	rows, err := l.svc.queryRetry(ctx, sqlText, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if len(l.examined) >= l.limit {
			break
		}

		loc, err := scanLocation(rows)
		if err != nil {
			return err
		}
		if l.examined[loc.ItemNo] {
			continue
		}
		// Not marked examined, so pass 1 reconsiders the row.
		if l.pass == 0 && !l.extended && loc.Source >= atlas.MinExternalSource {
			continue
		}
		l.examined[loc.ItemNo] = true
		if !l.svc.states.CloseMatchForState(l.parsed.TargetState, loc.State, loc.Country) {
			continue
		}

		if l.postal {
			loc.Rank = atlas.ZipRank
		} else {
			loc.Rank = clampRank(loc.Rank + rankAdjust)
		}
		if mark != nil {
			mark(loc)
		}
		l.matches.Add(loc)
	}

	return eris.Wrap(rows.Err(), "store: reading match rows")
}

// Non-postal ranks stay below the reserved postal rank.
func clampRank(rank int) int {
	if rank < 0 {
		return 0
	}
	if rank > atlas.ZipRank-1 {
		return atlas.ZipRank - 1
	}
	return rank
}

func scanLocation(row rowScanner) (*atlas.Location, error) {
	var (
		loc     atlas.Location
		keyName string
	)
	err := row.Scan(&loc.ItemNo, &keyName, &loc.City, &loc.Variant, &loc.County,
		&loc.State, &loc.Country, &loc.Latitude, &loc.Longitude, &loc.Elevation,
		&loc.Zone, &loc.Zip, &loc.Rank, &loc.PlaceType, &loc.Source, &loc.GeonameID)
	if err != nil {
		return nil, eris.Wrap(err, "store: scanning location")
	}
	return &loc, nil
}

// queryRetry retries a failed query once; transient pool failures are
// common enough to be worth one more attempt on a fresh connection.
func (s *Service) queryRetry(ctx context.Context, sqlText string, args ...any) (rowSet, error) {
	rows, err := s.run.query(ctx, sqlText, args...)
	if err == nil {
		return rows, nil
	}

	zap.L().Warn("query failed, retrying once", zap.Error(err))
	rows, err = s.run.query(ctx, sqlText, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: query")
	}
	return rows, nil
}
