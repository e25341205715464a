package main

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/db"
	"github.com/kshetline/svc-api/internal/gazetteer"
	"github.com/kshetline/svc-api/internal/store"
)

const loadBatchSize = 5000

var loadAltNames bool

var loadCmd = &cobra.Command{
	Use:   "load <geonames-extract.tsv>",
	Short: "Bulk-import a GeoNames tab-separated extract (PostgreSQL only)",
	Long: "Streams a GeoNames main-table extract (the allCountries.txt format) into " +
		"atlas2 through a COPY-backed staging table. Rows already present by " +
		"geonames_id are left alone.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Driver != "postgres" {
			return eris.New("load requires the postgres store driver")
		}
		if err := cfg.Validate("initdb"); err != nil {
			return err
		}
		if err := gazetteer.Init(); err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "load: opening extract")
		}
		defer f.Close() //nolint:errcheck

		if loadAltNames {
			return loadAltNameFile(ctx, pool, f)
		}

		g := gazetteer.Instance()
		var (
			batch    []*atlas.Location
			imported int64
			skipped  int
		)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := store.BulkImport(ctx, pool, batch)
			if err != nil {
				return err
			}
			imported += n
			batch = batch[:0]
			return nil
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			loc, ok := parseGeonamesLine(g, scanner.Text())
			if !ok {
				skipped++
				continue
			}
			batch = append(batch, loc)
			if len(batch) >= loadBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := scanner.Err(); err != nil {
			return eris.Wrap(err, "load: reading extract")
		}
		if err := flush(); err != nil {
			return err
		}

		zap.L().Info("import finished",
			zap.Int64("imported", imported), zap.Int("skipped", skipped))
		return nil
	},
}

// Column positions in the GeoNames main-table format.
const (
	colGeonameID = 0
	colName      = 1
	colLat       = 4
	colLng       = 5
	colFclass    = 6
	colFcode     = 7
	colCountry   = 8
	colAdmin1    = 10
	colPop       = 14
	colElev      = 15
	colTimezone  = 17

	minLoadFields = 18
)

// parseGeonamesLine converts one extract line to a Location, dropping
// rows that are not populated places or fail name canonicalization.
func parseGeonamesLine(g *gazetteer.Gazetteer, line string) (*atlas.Location, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < minLoadFields || fields[colFclass] != "P" {
		return nil, false
	}

	id, err := strconv.ParseInt(fields[colGeonameID], 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	lat, latErr := strconv.ParseFloat(fields[colLat], 64)
	lng, lngErr := strconv.ParseFloat(fields[colLng], 64)
	if latErr != nil || lngErr != nil {
		return nil, false
	}

	names, ok := g.ProcessPlaceNames(fields[colName], "", fields[colAdmin1], fields[colCountry], false)
	if !ok {
		return nil, false
	}

	pop, _ := strconv.ParseInt(fields[colPop], 10, 64)
	elev, _ := strconv.ParseFloat(fields[colElev], 64)

	placeType := fields[colFclass] + "." + fields[colFcode]
	rank := 1
	if fields[colFcode] == "PPLC" {
		rank++
	}
	if pop >= 1 {
		rank++
	}
	if pop >= 1_000_000 {
		rank++
	}

	return &atlas.Location{
		City:        names.City,
		Variant:     names.Variant,
		State:       names.State,
		Country:     names.Country,
		LongCountry: names.LongCountry,
		Latitude:    lat,
		Longitude:   lng,
		Elevation:   elev,
		Zone:        fields[colTimezone],
		Rank:        rank,
		PlaceType:   placeType,
		GeonameID:   id,
	}, true
}

// loadAltNameFile reads "alt,canonical[,Y]" lines and COPYs them into
// the alternate-names table. A trailing Y marks a known misspelling.
func loadAltNameFile(ctx context.Context, pool db.Pool, f *os.File) error {
	var entries []store.AltName

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		entry := store.AltName{
			Alt:       strings.TrimSpace(parts[0]),
			Canonical: strings.TrimSpace(parts[1]),
		}
		if len(parts) > 2 && strings.EqualFold(strings.TrimSpace(parts[2]), "y") {
			entry.Misspelling = true
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrap(err, "load: reading alt names")
	}

	n, err := store.BulkImportAltNames(ctx, pool, entries)
	if err != nil {
		return err
	}
	zap.L().Info("alternate names loaded", zap.Int64("count", n))
	return nil
}

func init() {
	loadCmd.Flags().BoolVar(&loadAltNames, "alt-names", false, "treat the input as an alt,canonical[,Y] list")
	rootCmd.AddCommand(loadCmd)
}
