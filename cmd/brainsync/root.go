package main

import (
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/brainsync/internal/config"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "brainsync",
		Short:         "Sync assistant brain sessions into a notes repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newStateCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}
