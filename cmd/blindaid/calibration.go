package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-blindaid/pkg/calibration"
	"github.com/teslashibe/go-blindaid/pkg/distance"
	"github.com/teslashibe/go-blindaid/pkg/settings"
)

var calibrationFile string

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Inspect or clear the stored calibration constant",
}

var calibrationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored calibration constant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calib, err := openCalibration()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		k := calib.K()
		if k == nil {
			fmt.Fprintf(out, "uncalibrated (default K = %.0f)\n", distance.K0)
			return nil
		}
		fmt.Fprintf(out, "K = %.2f\n", *k)
		return nil
	},
}

var calibrationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored calibration constant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calib, err := openCalibration()
		if err != nil {
			return err
		}
		if err := calib.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "calibration cleared")
		return nil
	},
}

func init() {
	calibrationCmd.PersistentFlags().StringVar(&calibrationFile, "file", "", "calibration file (default from settings)")
	calibrationCmd.AddCommand(calibrationShowCmd)
	calibrationCmd.AddCommand(calibrationResetCmd)
}

func openCalibration() (*calibration.Calibration, error) {
	path := calibrationFile
	if path == "" {
		st, err := settings.Load(settingsPath)
		if err != nil {
			return nil, err
		}
		path = st.CalibrationFile
	}
	return calibration.Open(calibration.NewFileStore(path))
}
