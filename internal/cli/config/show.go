package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the server address and token the CLI uses",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "CodeTracker Configuration:")
		fmt.Fprintf(out, "  Server: %s\n", viper.GetString("server.url"))

		token := viper.GetString("user.token")
		switch {
		case token == "":
			fmt.Fprintln(out, "  Token:  not set")
			fmt.Fprintln(out, "  Run 'tracker config set user.token <token>' to authenticate")
		case len(token) > 20:
			fmt.Fprintf(out, "  Token:  %s...\n", token[:20])
		default:
			fmt.Fprintf(out, "  Token:  %s\n", token)
		}
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd)
}
