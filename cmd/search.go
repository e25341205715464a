package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kshetline/svc-api/internal/search"
)

var (
	searchRemote  string
	searchLimit   int
	searchAsJSON  bool
	searchNoTrace bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve a place query from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("search"); err != nil {
			return err
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		result := e.Searcher.Search(cmd.Context(), strings.Join(args, " "), search.Options{
			Version: 9,
			Remote:  search.ParseRemoteMode(searchRemote),
			Limit:   searchLimit,
			Client:  "cli",
			NoTrace: searchNoTrace,
		})

		if searchAsJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		}

		cmd.Printf("%s: %d match(es)\n", result.NormalizedSearch, result.Count())
		for _, loc := range result.Matches {
			line := fmt.Sprintf("%s [%.4f, %.4f]", loc.DisplayName(), loc.Latitude, loc.Longitude)
			if loc.Zone != "" {
				line += " " + loc.Zone
			}
			cmd.Printf("%s (rank %d)\n", line, loc.Rank)
		}
		if result.Error != "" {
			cmd.Println("error: " + result.Error)
		}
		if result.Warning != "" {
			cmd.Println(result.Warning)
		}
		if result.Info != "" {
			cmd.Println(result.Info)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchRemote, "remote", "skip", "remote mode: skip, normal, extend, forced, only, geonames, getty")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 75, "maximum matches")
	searchCmd.Flags().BoolVar(&searchAsJSON, "json", false, "print the full JSON result")
	searchCmd.Flags().BoolVar(&searchNoTrace, "notrace", false, "skip search logging and writeback")
	rootCmd.AddCommand(searchCmd)
}
