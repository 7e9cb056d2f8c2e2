package stats

import (
	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored statistics",
	Long:  "Display the aggregated statistics without fetching the platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		view, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), view)
		return nil
	},
}

func init() {
	StatsCmd.AddCommand(showCmd)
}
