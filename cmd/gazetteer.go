package main

import (
	"github.com/spf13/cobra"

	"github.com/kshetline/svc-api/internal/gazetteer"
)

var gazetteerCmd = &cobra.Command{
	Use:   "gazetteer [name]",
	Short: "Inspect the embedded country and state dictionaries",
	Long:  "With no argument, lists recognized states and provinces. With a name or code, shows how it resolves.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gazetteer.Init(); err != nil {
			return err
		}
		g := gazetteer.Instance()

		if len(args) == 0 {
			for _, s := range g.StatesAndProvinces() {
				cmd.Println(s)
			}
			return nil
		}

		name := args[0]
		if code3, ok := g.ResolveCountry(name); ok {
			cmd.Printf("%s -> %s (%s)", name, code3, g.CountryName(code3))
			if flag := g.FlagCode(code3); flag != "" {
				cmd.Printf(" flag=%s", flag)
			}
			cmd.Println()
			return nil
		}
		if long := g.StateLongName(name); long != name {
			cmd.Printf("%s -> %s\n", name, long)
			return nil
		}
		if g.IsKnownStateOrCountry(name) {
			cmd.Printf("%s is a recognized state or country token\n", name)
			return nil
		}

		cmd.Printf("%s is not recognized\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gazetteerCmd)
}
