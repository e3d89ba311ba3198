package cli

import (
	"github.com/spf13/cobra"

	"racecard-watcher/internal/app"
)

var (
	oddsDate  string
	oddsVenue string
	oddsRace  int
)

var oddsCmd = &cobra.Command{
	Use:   "odds",
	Short: "Run one odds cycle for a single race",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.OddsOptions{
			Date:   oddsDate,
			Venue:  oddsVenue,
			RaceNo: oddsRace,
		}
		return getApp().Odds(cmd.Context(), opts)
	},
}

func init() {
	oddsCmd.Flags().StringVar(&oddsDate, "date", "", "Meeting date (YYYY-MM-DD)")
	oddsCmd.Flags().StringVar(&oddsVenue, "venue", "", "Venue code (ST or HV)")
	oddsCmd.Flags().IntVar(&oddsRace, "race", 0, "Race number")
	_ = oddsCmd.MarkFlagRequired("date")
	_ = oddsCmd.MarkFlagRequired("venue")
	_ = oddsCmd.MarkFlagRequired("race")
}
