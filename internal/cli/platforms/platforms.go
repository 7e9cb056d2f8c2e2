package platforms

import "github.com/spf13/cobra"

var PlatformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "Manage linked platform usernames",
}
