package cli

import (
	"github.com/spf13/cobra"

	"racecard-watcher/internal/app"
)

var (
	crawlDate  string
	crawlVenue string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Ingest the race card for one meeting",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CrawlOptions{
			Date:  crawlDate,
			Venue: crawlVenue,
		}
		return getApp().Crawl(cmd.Context(), opts)
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlDate, "date", "", "Meeting date (YYYY-MM-DD)")
	crawlCmd.Flags().StringVar(&crawlVenue, "venue", "", "Venue code (ST or HV)")
	_ = crawlCmd.MarkFlagRequired("date")
	_ = crawlCmd.MarkFlagRequired("venue")
}
