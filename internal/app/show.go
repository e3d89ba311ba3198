package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent odds snapshots.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snaps, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tDate\tVenue\tRace\tHorse\tPool\tOdds")

	for _, snap := range snaps {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			snap.SnapshotTS.UTC().Format(time.RFC3339),
			snap.Key.Date,
			snap.Key.VenueCode,
			snap.Key.RaceNo,
			snap.Key.HorseNo,
			snap.Pool,
			snap.Odds.StringFixed(2),
		)
	}

	writer.Flush()
	return nil
}
