package stats

import (
	"fmt"

	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
	"codetracker/pkg/utils"
)

var activityCmd = &cobra.Command{
	Use:   "activity <platform>",
	Short: "Show recent activity on a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		items, err := c.Activity(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No recent activity.")
			return nil
		}
		for _, a := range items {
			mark := "·"
			if a.Solved {
				mark = "✓"
			}
			line := fmt.Sprintf("%s %s", mark, a.ProblemName)
			if a.Difficulty != "" {
				line += " [" + a.Difficulty + "]"
			}
			if !a.Timestamp.IsZero() {
				line += " " + utils.TimeAgo(a.Timestamp)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	StatsCmd.AddCommand(activityCmd)
}
