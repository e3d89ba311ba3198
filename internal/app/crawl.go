package app

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Crawl runs a one-shot race-card ingestion for a single meeting.
func (a *App) Crawl(ctx context.Context, opts CrawlOptions) error {
	if opts.Date == "" || opts.Venue == "" {
		return errors.New("both --date and --venue are required")
	}
	if _, ok := parseLocalDate(opts.Date); !ok {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", opts.Date)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; parsing without persistence")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store)
	stored, err := svc.IngestMeeting(ctx, opts.Date, opts.Venue)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "ingested %d races for %s %s\n", stored, opts.Date, opts.Venue)
	return nil
}
