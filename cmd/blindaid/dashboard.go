package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-blindaid/internal/log"
	"github.com/teslashibe/go-blindaid/pkg/dashboard"
	"github.com/teslashibe/go-blindaid/pkg/settings"
	"github.com/teslashibe/go-blindaid/pkg/vision/opencv"
)

var dashboardPort string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the control dashboard",
	Long: `Serve a web page to start and stop detection, trigger calibration,
edit settings, follow the detection log and preview the webcam.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if debug {
			level = "debug"
		}
		log.Init(level)

		srv := dashboard.NewServer(dashboard.Config{
			Port:         dashboardPort,
			SettingsPath: settingsPath,
			Preview: func() ([]byte, error) {
				st, err := settings.Load(settingsPath)
				if err != nil {
					return nil, err
				}
				return opencv.Snapshot(st.CameraIndex)
			},
			Supervisor: dashboard.SupervisorConfig{
				Command: dashboard.RunCommand,
				Stdin:   os.Stdin,
			},
			Logger: log.L(),
		})
		return srv.Run(cmd.Context())
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardPort, "port", dashboard.DefaultPort, "HTTP port")
}
