package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codetracker/internal/cli/account"
	cliconfig "codetracker/internal/cli/config"
	"codetracker/internal/cli/platforms"
	"codetracker/internal/cli/stats"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "tracker",
	Short:         "CodeTracker command line client",
	Long:          "Link coding platform accounts and follow your solved-problem statistics",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.codetracker/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "server base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token")
	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("user.token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(cliconfig.ConfigCmd)
	rootCmd.AddCommand(stats.StatsCmd)
	rootCmd.AddCommand(platforms.PlatformsCmd)
	rootCmd.AddCommand(account.AccountCmd)
}

func initConfig() {
	viper.SetDefault("server.url", "http://localhost:8080")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".codetracker"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
