package account

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
	"codetracker/pkg/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		profile, err := c.Profile(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", profile.User.Name, profile.User.Email)
		for _, p := range models.Platforms {
			if username := profile.User.Platforms[p]; username != "" {
				fmt.Fprintf(out, "  %-11s %s\n", p, username)
			}
		}
		fmt.Fprintf(out, "Total solved: %d\n", profile.Stats.TotalProblems)
		if profile.LastUpdated != nil {
			fmt.Fprintf(out, "Last updated: %s\n", profile.LastUpdated.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	AccountCmd.AddCommand(profileCmd)
}
