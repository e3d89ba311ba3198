package cli

import (
	"github.com/spf13/cobra"

	"racecard-watcher/internal/app"
)

var (
	exportDate      string
	exportVenue     string
	exportRace      int
	exportHorse     int
	exportPool      string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one runner's odds history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Date:      exportDate,
			Venue:     exportVenue,
			RaceNo:    exportRace,
			HorseNo:   exportHorse,
			Pool:      exportPool,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Meeting date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportVenue, "venue", "", "Venue code (ST or HV)")
	exportCmd.Flags().IntVar(&exportRace, "race", 0, "Race number")
	exportCmd.Flags().IntVar(&exportHorse, "horse", 0, "Horse number")
	exportCmd.Flags().StringVar(&exportPool, "pool", "WIN", "Pool (WIN or PLACE)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
	_ = exportCmd.MarkFlagRequired("date")
	_ = exportCmd.MarkFlagRequired("venue")
	_ = exportCmd.MarkFlagRequired("race")
	_ = exportCmd.MarkFlagRequired("horse")
}
