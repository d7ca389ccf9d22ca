package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantsim/internal/runner"
	"github.com/newthinker/quantsim/internal/strategy"
)

var strategiesVerbose bool

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.finish()

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range a.strategies.Names() {
			s, err := a.strategies.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\n", name, s.Description())
			if !strategiesVerbose {
				continue
			}
			params, _ := strategy.Resolve(s, runner.Overrides(a.cfg, name, nil))
			for _, k := range params.Keys() {
				fmt.Fprintf(tw, "\t  %s = %v\n", k, params[k])
			}
		}
		return tw.Flush()
	},
}

func init() {
	strategiesCmd.Flags().BoolVarP(&strategiesVerbose, "verbose", "v", false, "Show effective parameters")
	rootCmd.AddCommand(strategiesCmd)
}
