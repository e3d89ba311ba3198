package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"racecard-watcher/internal/alerting"
	"racecard-watcher/internal/config"
	"racecard-watcher/internal/odds"
	"racecard-watcher/internal/racecard"
	"racecard-watcher/internal/storage"
)

// missStopLimit 连续缺场次数达到即停止扫描。
const missStopLimit = 2

// CardSource renders the bilingual race-card pages for one race.
type CardSource interface {
	RacePages(ctx context.Context, dateISO, venue string, raceNo int) (htmlZH, htmlEN string, err error)
}

// OddsSource fetches the live sheet for one race.
type OddsSource interface {
	FetchSheet(ctx context.Context, key odds.SheetKey) (odds.Sheet, error)
}

// Service orchestrates fetching, parsing, persistence, and alerting.
type Service struct {
	cards    CardSource
	sheets   OddsSource
	parser   *racecard.Parser
	store    storage.RaceCardStore
	oddsDB   storage.OddsStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	maxRaces  int
	dropPct   decimal.Decimal
	channels  []string
	alertsOn  bool
	cooldown  time.Duration
	alertMu   sync.Mutex
	lastAlert map[string]time.Time
}

// New constructs the watcher service.
func New(cfg *config.Config, cards CardSource, sheets OddsSource, store storage.RaceCardStore, oddsDB storage.OddsStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	dropPct := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.DropPct > 0 {
		dropPct = decimal.NewFromFloat(cfg.Alerting.DropPct)
	}

	return &Service{
		cards:     cards,
		sheets:    sheets,
		parser:    racecard.NewParser(logger),
		store:     store,
		oddsDB:    oddsDB,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		maxRaces:  cfg.Source.MaxRaces,
		dropPct:   dropPct,
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		cooldown:  cfg.Alerting.Cooldown,
		lastAlert: make(map[string]time.Time),
	}
}

// IngestMeeting scans a meeting race by race, persisting each card. Races are
// probed in order; two consecutive races without a starter grid end the scan.
// Per-race parse failures are logged and counted as misses, never fatal.
func (s *Service) IngestMeeting(ctx context.Context, date, venue string) (int, error) {
	if s.cards == nil {
		return 0, fmt.Errorf("card source not configured")
	}

	key := storage.MeetingKey{Date: date, VenueCode: venue}
	if s.store != nil {
		if err := s.store.UpsertMeeting(ctx, key, ""); err != nil {
			return 0, err
		}
	}

	stored := 0
	misses := 0
	for raceNo := 1; raceNo <= s.maxRaces; raceNo++ {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		race, err := s.ingestRace(ctx, key, raceNo)
		if err != nil {
			if errors.Is(err, racecard.ErrNoGrid) {
				misses++
				s.logger.Debug().Int("race_no", raceNo).Int("misses", misses).Msg("race card without starter grid")
			} else {
				misses++
				s.logger.Error().Err(err).Str("date", date).Str("venue", venue).Int("race_no", raceNo).Msg("race ingestion failed")
			}
			if misses >= missStopLimit {
				break
			}
			continue
		}

		misses = 0
		if len(race.Entries) == 0 {
			s.logger.Warn().Int("race_no", raceNo).Msg("race parsed with no entries, skipped")
			continue
		}
		stored++
	}

	s.logger.Info().Str("date", date).Str("venue", venue).Int("races", stored).Msg("meeting ingested")
	return stored, nil
}

func (s *Service) ingestRace(ctx context.Context, key storage.MeetingKey, raceNo int) (racecard.Race, error) {
	htmlZH, htmlEN, err := s.cards.RacePages(ctx, key.Date, key.VenueCode, raceNo)
	if err != nil {
		return racecard.Race{}, err
	}

	race, err := s.parser.ParseRace(htmlZH, htmlEN, key.Date, raceNo)
	if err != nil {
		return racecard.Race{}, err
	}

	if s.store == nil || len(race.Entries) == 0 {
		return race, nil
	}

	if err := s.store.UpsertRace(ctx, key, race); err != nil {
		return race, fmt.Errorf("persist race %d: %w", raceNo, err)
	}
	for _, entry := range race.Entries {
		if entry.HorseNo == nil {
			s.logger.Warn().Int("race_no", raceNo).Str("horse", entry.HorseName).Msg("entry without horse number, skipped")
			continue
		}
		if err := s.store.UpsertEntry(ctx, key, raceNo, entry); err != nil {
			s.logger.Error().Err(err).Int("race_no", raceNo).Int("horse_no", *entry.HorseNo).Msg("failed to persist entry")
		}
	}
	for _, reserve := range race.Reserves {
		if reserve.HorseNo == nil {
			continue
		}
		if err := s.store.UpsertEntry(ctx, key, raceNo, reserve); err != nil {
			s.logger.Error().Err(err).Int("race_no", raceNo).Int("horse_no", *reserve.HorseNo).Msg("failed to persist reserve")
		}
	}
	return race, nil
}

// IngestOdds 拉取一场赛事的即时赔率并套用快照策略:
// 最新值无条件覆写, 历史仅在变化时追加。
func (s *Service) IngestOdds(ctx context.Context, date, venue string, raceNo int) error {
	if s.sheets == nil {
		return fmt.Errorf("odds source not configured")
	}
	if s.oddsDB == nil {
		return fmt.Errorf("odds store not configured")
	}

	sheet, err := s.sheets.FetchSheet(ctx, odds.SheetKey{Date: date, VenueCode: venue, RaceNo: raceNo})
	if err != nil {
		return fmt.Errorf("fetch odds sheet: %w", err)
	}

	now := time.Now().UTC()
	changed := 0
	for horseNo, pools := range sheet {
		key := storage.QuoteKey{Date: date, VenueCode: venue, RaceNo: raceNo, HorseNo: horseNo}

		latest := storage.LatestOdds{UpdatedAt: now}
		if win, ok := pools[odds.PoolWin]; ok {
			v := win
			latest.Win = &v
		}
		if place, ok := pools[odds.PoolPlace]; ok {
			v := place
			latest.Place = &v
		}
		if err := s.oddsDB.UpsertLatestOdds(ctx, key, latest); err != nil {
			s.logger.Error().Err(err).Int("horse_no", horseNo).Msg("failed to upsert latest odds")
		}

		for pool, value := range pools {
			wrote, err := s.snapshotIfChanged(ctx, key, string(pool), value, now)
			if err != nil {
				s.logger.Error().Err(err).Int("horse_no", horseNo).Str("pool", string(pool)).Msg("snapshot policy failed")
				continue
			}
			if wrote {
				changed++
			}
		}
	}

	s.logger.Info().
		Str("date", date).Str("venue", venue).Int("race_no", raceNo).
		Int("runners", len(sheet)).Int("changed", changed).
		Msg("odds cycle complete")
	return nil
}

// snapshotIfChanged appends one history row when the value differs from the
// latest stored snapshot, and raises a drop alert on a sharp shortening.
func (s *Service) snapshotIfChanged(ctx context.Context, key storage.QuoteKey, pool string, value decimal.Decimal, ts time.Time) (bool, error) {
	last, err := s.oddsDB.GetLastSnapshot(ctx, key, pool)
	if err != nil {
		return false, err
	}
	if last != nil && last.Equal(value) {
		return false, nil
	}

	if err := s.oddsDB.AppendSnapshot(ctx, key, pool, value, ts); err != nil {
		return false, err
	}

	// Drop alerts track the WIN pool only; PLACE moves are too compressed
	// to threshold meaningfully.
	if last != nil && pool == string(odds.PoolWin) {
		s.maybeAlert(ctx, key, pool, *last, value, ts)
	}
	return true, nil
}

func (s *Service) maybeAlert(ctx context.Context, key storage.QuoteKey, pool string, previous, current decimal.Decimal, ts time.Time) {
	if !s.alertsOn || s.notifier == nil || s.dropPct.IsZero() {
		return
	}
	drop := alerting.DropPercent(previous, current)
	if !drop.GreaterThan(s.dropPct) {
		return
	}
	if !s.allowAlert(key, pool, ts) {
		return
	}

	note := alerting.Notification{
		Date:         key.Date,
		VenueCode:    key.VenueCode,
		RaceNo:       key.RaceNo,
		HorseNo:      key.HorseNo,
		Pool:         pool,
		Previous:     previous,
		Current:      current,
		DropPct:      drop,
		ThresholdPct: s.dropPct,
		ObservedAt:   ts,
		Channels:     s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Int("horse_no", key.HorseNo).Str("pool", pool).Msg("failed to dispatch alert")
	}
}

// allowAlert enforces the per-runner cooldown.
func (s *Service) allowAlert(key storage.QuoteKey, pool string, ts time.Time) bool {
	if s.cooldown <= 0 {
		return true
	}
	id := fmt.Sprintf("%s/%s/%d/%d/%s", key.Date, key.VenueCode, key.RaceNo, key.HorseNo, pool)

	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	if prev, ok := s.lastAlert[id]; ok && ts.Sub(prev) < s.cooldown {
		return false
	}
	s.lastAlert[id] = ts
	return true
}
