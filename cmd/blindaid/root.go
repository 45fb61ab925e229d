package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-blindaid/internal/config"
)

var (
	settingsPath string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "blindaid",
	Short: "Spoken obstacle warnings from a webcam",
	Long: `blindaid watches a webcam, estimates how far each detected object is and
announces the nearest one when it comes within the alert distance.

Say "start detection", "stop detection" or "calibrate" to control it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}
		if !cmd.Flags().Changed("settings") {
			settingsPath = config.SettingsPath()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", config.DefaultSettingsPath, "settings file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(calibrationCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
