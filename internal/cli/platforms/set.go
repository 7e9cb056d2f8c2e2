package platforms

import (
	"fmt"

	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
	"codetracker/pkg/models"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Link or unlink platform usernames",
	Long: `Set usernames per platform. Pass an empty value to unlink a platform,
for example: tracker platforms set --leetcode alice --codechef ""`,
	RunE: func(cmd *cobra.Command, args []string) error {
		update := map[string]string{}
		for _, p := range models.Platforms {
			if cmd.Flags().Changed(string(p)) {
				v, _ := cmd.Flags().GetString(string(p))
				update[string(p)] = v
			}
		}
		if len(update) == 0 {
			return fmt.Errorf("nothing to update, pass at least one platform flag")
		}

		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		resp, err := c.UpdatePlatforms(cmd.Context(), update)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, p := range models.Platforms {
			if username := resp.User.Platforms[p]; username != "" {
				fmt.Fprintf(out, "  %-11s %s\n", p, username)
			}
		}
		if len(resp.Cleanup.RemovedPlatforms) > 0 {
			fmt.Fprintf(out, "Removed stats for: %v\n", resp.Cleanup.RemovedPlatforms)
		}
		fmt.Fprintln(out, resp.Note)
		return nil
	},
}

func init() {
	for _, p := range models.Platforms {
		setCmd.Flags().String(string(p), "", fmt.Sprintf("%s username", p))
	}
	PlatformsCmd.AddCommand(setCmd)
}
