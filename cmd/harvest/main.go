package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "harvest",
		Short:         "Find the best harvest day for a crop, place and period",
		Long:          "harvest fetches daily NASA POWER climate data for a place and picks the day whose temperature best fits the crop.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	cmd.AddCommand(
		newPlanCmd(opts),
		newHistoryCmd(opts),
		newGuideCmd(),
		newCSVCmd(),
	)
	return cmd
}
