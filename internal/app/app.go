package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"racecard-watcher/internal/alerting"
	"racecard-watcher/internal/config"
	"racecard-watcher/internal/fetch"
	"racecard-watcher/internal/logging"
	"racecard-watcher/internal/odds"
	"racecard-watcher/internal/racecard"
	"racecard-watcher/internal/scheduler"
	"racecard-watcher/internal/service"
	"racecard-watcher/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newCardSource() *fetch.Client {
	renderer := fetch.NewBrowser(fetch.BrowserOptions{
		Headless: a.Config.Source.Headless,
		Lang:     a.Config.Source.Lang,
		Timeout:  a.Config.Source.RequestTimeout,
	}, a.Logger)
	return fetch.NewClient(renderer, a.Config.Source.BaseURL, a.Logger)
}

func (a *App) newOddsSource() *odds.Client {
	return odds.NewClient(odds.Options{
		BaseURL:   a.Config.Odds.BaseURL,
		Timeout:   a.Config.Odds.RequestTimeout,
		UserAgent: a.Config.Odds.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	var cardStore storage.RaceCardStore
	var oddsStore storage.OddsStore
	if store != nil {
		cardStore = store
		oddsStore = store
	}
	return service.New(a.Config, a.newCardSource(), a.newOddsSource(), cardStore, oddsStore, a.newNotifier(), a.Logger)
}

// Run executes the long-running watcher. Every tick the fixture registry is
// re-read and each fixture's window decides whether to fire; missed ticks are
// simply skipped, never replayed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; the watcher needs a fixture registry")
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToClock: a.Config.Scheduler.AlignToClock,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store)
	watcher := &fixtureWatcher{
		app:      a,
		fixtures: store,
		cards:    store,
		svc:      svc,
		logger:   logging.Component(a.Logger, "watcher"),
	}

	a.Logger.Info().Msg("starting race watcher")
	err = sched.Run(ctx, watcher.tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("race watcher stopped")
	return nil
}

// fixtureWatcher evaluates every registered fixture against the clock on each
// driver tick.
type fixtureWatcher struct {
	app      *App
	fixtures storage.FixtureSource
	cards    storage.RaceCardStore
	svc      *service.Service
	logger   zerolog.Logger
}

func (w *fixtureWatcher) tick(ctx context.Context, now time.Time) error {
	local := now.In(racecard.TrackZone())
	mark := w.app.Config.Scheduler.HourlyMark

	if err := w.tickMeetings(ctx, local, mark); err != nil {
		w.logger.Error().Err(err).Msg("meeting sweep failed")
	}
	if err := w.tickRaces(ctx, local, mark); err != nil {
		w.logger.Error().Err(err).Msg("race sweep failed")
	}
	return nil
}

// tickMeetings drives race-card ingestion: hourly from declaration-day noon
// until the meeting's card is in storage.
func (w *fixtureWatcher) tickMeetings(ctx context.Context, now time.Time, mark int) error {
	meetings, err := w.fixtures.ListMeetingFixtures(ctx)
	if err != nil {
		return err
	}

	for _, m := range meetings {
		raceDay, ok := parseLocalDate(m.Date)
		if !ok {
			continue
		}

		have, err := w.cards.HasRaceCard(ctx, storage.MeetingKey{Date: m.Date, VenueCode: m.VenueCode})
		if err != nil {
			w.logger.Error().Err(err).Str("date", m.Date).Msg("race card lookup failed")
			continue
		}
		if have {
			continue
		}

		drawDay := raceDay.AddDate(0, 0, -2)
		if d, ok := parseLocalDate(m.DrawDate); ok {
			drawDay = d
		}

		window := scheduler.Window{
			// The card stays worth fetching right up to the day's close.
			EventTime: raceDay.Add(24 * time.Hour),
			WatchFrom: scheduler.CardWatchStart(drawDay, w.app.Config.Scheduler.CardWatchHour),
		}
		if !window.ShouldFire(now, mark) {
			continue
		}

		if _, err := w.svc.IngestMeeting(ctx, m.Date, m.VenueCode); err != nil {
			w.logger.Error().Err(err).Str("date", m.Date).Str("venue", m.VenueCode).Msg("meeting ingestion failed")
		}
	}
	return nil
}

// tickRaces drives odds ingestion per race, with the window opening on the
// eve of race day.
func (w *fixtureWatcher) tickRaces(ctx context.Context, now time.Time, mark int) error {
	races, err := w.fixtures.ListRaceFixtures(ctx)
	if err != nil {
		return err
	}

	for _, r := range races {
		off, ok := racecard.OffTimeAsTime(r.Date, r.OffTimeLocal)
		if !ok {
			continue
		}
		raceDay, ok := parseLocalDate(r.Date)
		if !ok {
			continue
		}

		window := scheduler.Window{
			EventTime: off,
			WatchFrom: scheduler.OddsWatchStart(raceDay, w.app.Config.Scheduler.WatchStartHour),
		}
		if !window.ShouldFire(now, mark) {
			continue
		}

		if err := w.svc.IngestOdds(ctx, r.Date, r.VenueCode, r.RaceNo); err != nil {
			w.logger.Error().Err(err).Str("date", r.Date).Int("race_no", r.RaceNo).Msg("odds ingestion failed")
		}
	}
	return nil
}

func parseLocalDate(dateISO string) (time.Time, bool) {
	if dateISO == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", dateISO, racecard.TrackZone())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CrawlOptions configure a one-shot meeting ingestion.
type CrawlOptions struct {
	Date  string
	Venue string
}

// OddsOptions configure a one-shot odds cycle.
type OddsOptions struct {
	Date   string
	Venue  string
	RaceNo int
}

// ExportOptions hold parameters for exporting a runner's odds history.
type ExportOptions struct {
	Date      string
	Venue     string
	RaceNo    int
	HorseNo   int
	Pool      string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
