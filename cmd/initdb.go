package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
	"github.com/kshetline/svc-api/internal/store"
)

var initdbWithSamples bool

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the atlas schema and seed the zone table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("initdb"); err != nil {
			return err
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		if err := e.Store.Migrate(ctx); err != nil {
			return err
		}

		if err := seedZones(ctx, e.Store); err != nil {
			return err
		}

		if initdbWithSamples {
			if err := seedSamples(ctx, e.Store); err != nil {
				return err
			}
		}

		zap.L().Info("database initialized", zap.Bool("samples", initdbWithSamples))
		return nil
	},
}

// seedZones loads single-zone countries and the larger multi-zone
// entries the resolver needs before tzf geometry kicks in.
func seedZones(ctx context.Context, st *store.Service) error {
	zones := map[string]string{
		"FRA":     "Europe/Paris",
		"DEU":     "Europe/Berlin",
		"GBR":     "Europe/London",
		"JPN":     "Asia/Tokyo",
		"USA":     "America/New_York,America/Chicago,America/Denver,America/Los_Angeles,America/Anchorage,Pacific/Honolulu",
		"USA:NH":  "America/New_York",
		"USA:NY":  "America/New_York",
		"USA:CA":  "America/Los_Angeles",
		"USA:TX":  "America/Chicago",
		"CAN":     "America/Toronto,America/Winnipeg,America/Edmonton,America/Vancouver,America/Halifax,America/St_Johns",
		"CAN:ON":  "America/Toronto",
		"CAN:BC":  "America/Vancouver",
		"AUS":     "Australia/Sydney,Australia/Adelaide,Australia/Perth,Australia/Brisbane,Australia/Darwin,Australia/Hobart",
		"AUS:NSW": "Australia/Sydney",
	}
	for key, list := range zones {
		if err := st.PutZone(ctx, key, list); err != nil {
			return err
		}
	}
	return nil
}

// seedSamples inserts a handful of well-known places so a fresh
// database answers the smoke-test queries without remote help.
func seedSamples(ctx context.Context, st *store.Service) error {
	samples := []*atlas.Location{
		{City: "Nashua", County: "Hillsborough County", State: "NH", Country: "USA",
			LongCountry: "United States", Latitude: 42.7575, Longitude: -71.4644,
			Elevation: 41, Zone: "America/New_York", Rank: 4, PlaceType: "P.PPL",
			Source: 1, UseAsUpdate: true},
		{City: "Paris", Country: "FRA", LongCountry: "France",
			Latitude: 48.8567, Longitude: 2.3510, Elevation: 36, Zone: "Europe/Paris",
			Rank: 8, PlaceType: "P.PPLC", Source: 1, UseAsUpdate: true},
		{City: "Paris", County: "Lamar County", State: "TX", Country: "USA",
			LongCountry: "United States", Latitude: 33.6609, Longitude: -95.5555,
			Elevation: 183, Zone: "America/Chicago", Rank: 3, PlaceType: "P.PPL",
			Source: 1, UseAsUpdate: true},
		{City: "Lake Placid", Variant: "Placid", County: "Essex County", State: "NY",
			Country: "USA", LongCountry: "United States", Latitude: 44.2795,
			Longitude: -73.9799, Elevation: 568, Zone: "America/New_York", Rank: 2,
			PlaceType: "P.PPL", Source: 1, UseAsUpdate: true},
		{City: "Beverly Hills", County: "Los Angeles County", State: "CA",
			Country: "USA", LongCountry: "United States", Latitude: 34.0901,
			Longitude: -118.4065, Elevation: 80, Zone: "America/Los_Angeles",
			Zip: "90210", Rank: 9, PlaceType: "P.PPL", Source: 1, UseAsUpdate: true},
	}

	n, err := st.SaveLocations(ctx, samples)
	if err != nil {
		return err
	}
	zap.L().Info("sample places written", zap.Int("count", n))
	return nil
}

func init() {
	initdbCmd.Flags().BoolVar(&initdbWithSamples, "samples", false, "also insert sample places")
	rootCmd.AddCommand(initdbCmd)
}
