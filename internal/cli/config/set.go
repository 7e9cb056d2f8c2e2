package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var settableKeys = map[string]bool{
	"server.url": true,
	"user.token": true,
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set server.url or user.token and save the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !settableKeys[args[0]] {
			return fmt.Errorf("unknown key %q (expected server.url or user.token)", args[0])
		}
		viper.Set(args[0], args[1])

		path, err := Save()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s saved to %s\n", args[0], path)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(setCmd)
}
