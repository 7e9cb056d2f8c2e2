package stats

import (
	"fmt"

	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every linked platform now",
	Long:  "Refresh statistics from all configured platforms and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		result, err := c.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range result.Success {
			fmt.Fprintf(out, "✓ %s (%s): %d solved\n", s.Platform, s.Username, s.Stats.TotalSolved)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "✗ %s (%s): %s\n", e.Platform, e.Username, e.Error)
		}
		if result.AggregatedStats != nil {
			fmt.Fprintln(out)
			printView(out, result.AggregatedStats)
		}
		return nil
	},
}

func init() {
	StatsCmd.AddCommand(refreshCmd)
}
