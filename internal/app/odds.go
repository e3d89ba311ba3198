package app

import (
	"context"
	"errors"
	"fmt"
)

// Odds runs one odds cycle for a single race.
func (a *App) Odds(ctx context.Context, opts OddsOptions) error {
	if opts.Date == "" || opts.Venue == "" {
		return errors.New("both --date and --venue are required")
	}
	if opts.RaceNo <= 0 {
		return errors.New("--race must be a positive race number")
	}
	if _, ok := parseLocalDate(opts.Date); !ok {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", opts.Date)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; odds cycles need snapshot storage")
	}
	defer closeStore()

	svc := a.newService(store)
	return svc.IngestOdds(ctx, opts.Date, opts.Venue, opts.RaceNo)
}
