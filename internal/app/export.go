package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"racecard-watcher/internal/storage"
)

// Export renders one runner's odds history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Date == "" || opts.Venue == "" || opts.RaceNo <= 0 || opts.HorseNo <= 0 {
		return errors.New("--date, --venue, --race, and --horse are all required")
	}

	pool := strings.ToUpper(opts.Pool)
	if pool == "" {
		pool = "WIN"
	}
	if pool != "WIN" && pool != "PLACE" {
		return fmt.Errorf("unknown pool %q, expected WIN or PLACE", opts.Pool)
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	key := storage.QuoteKey{
		Date:      opts.Date,
		VenueCode: opts.Venue,
		RaceNo:    opts.RaceNo,
		HorseNo:   opts.HorseNo,
	}
	snaps, err := store.ListRunnerSnapshots(ctx, key, pool)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		a.Logger.Info().Msg("no snapshots found for export window")
		return nil
	}

	downsampled := downsampleSnapshots(snaps, opts.MaxPoints)
	a.Logger.Info().Int("total", len(snaps)).Int("exported", len(downsampled)).Msg("exporting snapshots")

	if opts.CSVPath != "" {
		if err := writeSnapshotsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		title := fmt.Sprintf("%s %s R%d #%d %s", opts.Date, opts.Venue, opts.RaceNo, opts.HorseNo, pool)
		if err := writeSnapshotsPNG(opts.PNGPath, title, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSnapshots(snaps []storage.SnapshotRow, max int) []storage.SnapshotRow {
	if max <= 0 || len(snaps) <= max {
		return snaps
	}

	result := make([]storage.SnapshotRow, 0, max)
	step := float64(len(snaps)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(snaps) {
			idx = len(snaps) - 1
		}
		result = append(result, snaps[idx])
	}
	return result
}

func writeSnapshotsCSV(path string, snaps []storage.SnapshotRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"snapshot_ts", "race_date", "venue_code", "race_no", "horse_no", "pool", "odds"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, snap := range snaps {
		record := []string{
			snap.SnapshotTS.UTC().Format(time.RFC3339),
			snap.Key.Date,
			snap.Key.VenueCode,
			fmt.Sprintf("%d", snap.Key.RaceNo),
			fmt.Sprintf("%d", snap.Key.HorseNo),
			snap.Pool,
			snap.Odds.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSnapshotsPNG(path, title string, snaps []storage.SnapshotRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(snaps))
	odds := make([]float64, len(snaps))
	for i, snap := range snaps {
		x[i] = snap.SnapshotTS
		odds[i] = snap.Odds.InexactFloat64()
	}

	oddsFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Odds",
			ValueFormatter: oddsFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Odds",
				XValues: x,
				YValues: odds,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
