package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"racecard-watcher/internal/racecard"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertMeetingSQL = `INSERT INTO race_meetings (race_date, venue_code, draw_date)
    VALUES ($1,$2,$3)
    ON CONFLICT (race_date, venue_code) DO UPDATE
    SET draw_date = COALESCE(EXCLUDED.draw_date, race_meetings.draw_date);`

	upsertRaceSQL = `INSERT INTO racecard_races (
        race_date, venue_code, race_no,
        race_time, name_zh, name_en,
        off_time_zoned, off_time_utc,
        distance_m, surface, course_line, going, class_text, handicap
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
    )
    ON CONFLICT (race_date, venue_code, race_no) DO UPDATE
    SET
        race_time      = EXCLUDED.race_time,
        name_zh        = EXCLUDED.name_zh,
        name_en        = EXCLUDED.name_en,
        off_time_zoned = EXCLUDED.off_time_zoned,
        off_time_utc   = EXCLUDED.off_time_utc,
        distance_m     = EXCLUDED.distance_m,
        surface        = EXCLUDED.surface,
        course_line    = EXCLUDED.course_line,
        going          = EXCLUDED.going,
        class_text     = EXCLUDED.class_text,
        handicap       = EXCLUDED.handicap;`

	upsertEntrySQL = `INSERT INTO racecard_entries (
        race_date, venue_code, race_no, horse_no, is_reserve,
        horse_name, brand, draw, jockey, trainer,
        rating, rating_pm, weight_lb, declared_wt, declared_wt_pm,
        age, sex, wfa, season_stakes, priority, days_since,
        gear, last6, silks, owner, sire, dam, import_cat
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
        $11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
        $21,$22,$23,$24,$25,$26,$27,$28
    )
    ON CONFLICT (race_date, venue_code, race_no, horse_no, is_reserve) DO UPDATE
    SET
        horse_name     = EXCLUDED.horse_name,
        brand          = EXCLUDED.brand,
        draw           = EXCLUDED.draw,
        jockey         = EXCLUDED.jockey,
        trainer        = EXCLUDED.trainer,
        rating         = EXCLUDED.rating,
        rating_pm      = EXCLUDED.rating_pm,
        weight_lb      = EXCLUDED.weight_lb,
        declared_wt    = EXCLUDED.declared_wt,
        declared_wt_pm = EXCLUDED.declared_wt_pm,
        age            = EXCLUDED.age,
        sex            = EXCLUDED.sex,
        wfa            = EXCLUDED.wfa,
        season_stakes  = EXCLUDED.season_stakes,
        priority       = EXCLUDED.priority,
        days_since     = EXCLUDED.days_since,
        gear           = EXCLUDED.gear,
        last6          = EXCLUDED.last6,
        silks          = EXCLUDED.silks,
        owner          = EXCLUDED.owner,
        sire           = EXCLUDED.sire,
        dam            = EXCLUDED.dam,
        import_cat     = EXCLUDED.import_cat;`

	hasRaceCardSQL = `SELECT COUNT(*) FROM racecard_races WHERE race_date = $1 AND venue_code = $2;`

	listMeetingFixturesSQL = `SELECT race_date, venue_code, COALESCE(draw_date::text, '')
    FROM race_meetings
    WHERE race_date >= CURRENT_DATE - INTERVAL '1 day'
      AND race_date <= CURRENT_DATE + INTERVAL '7 days'
    ORDER BY race_date, venue_code;`

	listRaceFixturesSQL = `SELECT race_date, venue_code, race_no, COALESCE(race_time, '')
    FROM racecard_races
    WHERE race_date >= CURRENT_DATE - INTERVAL '1 day'
      AND race_date <= CURRENT_DATE + INTERVAL '1 day'
    ORDER BY race_date, venue_code, race_no;`

	upsertLatestOddsSQL = `INSERT INTO racecard_entries (
        race_date, venue_code, race_no, horse_no, is_reserve,
        win_odds, place_odds, last_odds_update
    ) VALUES ($1,$2,$3,$4,FALSE,$5,$6,$7)
    ON CONFLICT (race_date, venue_code, race_no, horse_no, is_reserve) DO UPDATE
    SET
        win_odds         = EXCLUDED.win_odds,
        place_odds       = EXCLUDED.place_odds,
        last_odds_update = EXCLUDED.last_odds_update;`

	getLastSnapshotSQL = `SELECT odds::text
    FROM race_odds_snapshots
    WHERE race_date = $1 AND venue_code = $2 AND race_no = $3 AND horse_no = $4 AND pool = $5
    ORDER BY snapshot_ts DESC
    LIMIT 1;`

	appendSnapshotSQL = `INSERT INTO race_odds_snapshots (
        race_date, venue_code, race_no, horse_no, pool, odds, snapshot_ts
    ) VALUES ($1,$2,$3,$4,$5,$6,$7);`

	listRecentSnapshotsSQL = `SELECT race_date::text, venue_code, race_no, horse_no, pool, odds::text, snapshot_ts
    FROM race_odds_snapshots
    ORDER BY snapshot_ts DESC, id DESC
    LIMIT $1;`

	listRunnerSnapshotsSQL = `SELECT race_date::text, venue_code, race_no, horse_no, pool, odds::text, snapshot_ts
    FROM race_odds_snapshots
    WHERE race_date = $1 AND venue_code = $2 AND race_no = $3 AND horse_no = $4 AND pool = $5
    ORDER BY snapshot_ts;`
)

// RaceCardStore persists parsed race cards.
type RaceCardStore interface {
	UpsertMeeting(ctx context.Context, key MeetingKey, drawDate string) error
	UpsertRace(ctx context.Context, key MeetingKey, race racecard.Race) error
	UpsertEntry(ctx context.Context, key MeetingKey, raceNo int, entry racecard.Entry) error
	HasRaceCard(ctx context.Context, key MeetingKey) (bool, error)
}

// OddsStore is the persistence contract behind the snapshot policy: an
// unconditional latest-projection overwrite, a last-value probe, and an
// append-only history write. Each call is a single statement, so overlapping
// cycles degrade to last-write-wins rather than lost updates.
type OddsStore interface {
	UpsertLatestOdds(ctx context.Context, key QuoteKey, latest LatestOdds) error
	GetLastSnapshot(ctx context.Context, key QuoteKey, pool string) (*decimal.Decimal, error)
	AppendSnapshot(ctx context.Context, key QuoteKey, pool string, odds decimal.Decimal, ts time.Time) error
}

// FixtureSource is the fixture registry read by the temporal scheduler.
type FixtureSource interface {
	ListMeetingFixtures(ctx context.Context) ([]MeetingFixture, error)
	ListRaceFixtures(ctx context.Context) ([]RaceFixture, error)
}

// Store aggregates access to race cards, odds, and fixtures.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertMeeting registers or refreshes a meeting fixture.
func (s *Store) UpsertMeeting(ctx context.Context, key MeetingKey, drawDate string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	var draw any
	if drawDate != "" {
		draw = drawDate
	}
	if _, err := pool.Exec(ctx, upsertMeetingSQL, key.Date, key.VenueCode, draw); err != nil {
		return fmt.Errorf("upsert meeting: %w", err)
	}
	return nil
}

// UpsertRace persists or updates one race of a meeting.
func (s *Store) UpsertRace(ctx context.Context, key MeetingKey, race racecard.Race) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var distance any
	if race.DistanceM != nil {
		distance = *race.DistanceM
	}

	_, execErr := pool.Exec(ctx, upsertRaceSQL,
		key.Date,
		key.VenueCode,
		race.RaceNo,
		race.OffTimeLocal,
		race.NameZH,
		race.NameEN,
		race.OffTimeZoned,
		race.OffTimeUTC,
		distance,
		race.Surface,
		race.CourseLine,
		race.Going,
		race.ClassText,
		race.Handicap,
	)
	if execErr != nil {
		return fmt.Errorf("upsert race: %w", execErr)
	}
	return nil
}

// UpsertEntry persists or updates one runner of a race. Entries without a
// horse number have no stable key and are rejected by the caller before
// reaching storage.
func (s *Store) UpsertEntry(ctx context.Context, key MeetingKey, raceNo int, entry racecard.Entry) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if entry.HorseNo == nil {
		return errors.New("entry without horse number")
	}

	_, execErr := pool.Exec(ctx, upsertEntrySQL,
		key.Date,
		key.VenueCode,
		raceNo,
		*entry.HorseNo,
		entry.Reserve,
		entry.HorseName,
		entry.Brand,
		nullableInt(entry.Draw),
		entry.Jockey,
		entry.Trainer,
		nullableInt(entry.Rating),
		entry.RatingDelta,
		nullableInt(entry.WeightLB),
		nullableInt(entry.DeclaredWt),
		entry.DeclaredWtDelta,
		nullableInt(entry.Age),
		entry.Sex,
		entry.WFA,
		entry.SeasonStakes,
		entry.Priority,
		entry.DaysSince,
		entry.Gear,
		entry.Last6,
		entry.Silks,
		entry.Owner,
		entry.Sire,
		entry.Dam,
		entry.ImportCat,
	)
	if execErr != nil {
		return fmt.Errorf("upsert entry: %w", execErr)
	}
	return nil
}

// HasRaceCard reports whether a meeting's card has been ingested already.
func (s *Store) HasRaceCard(ctx context.Context, key MeetingKey) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, hasRaceCardSQL, key.Date, key.VenueCode).Scan(&count); scanErr != nil {
		return false, fmt.Errorf("has race card: %w", scanErr)
	}
	return count > 0, nil
}

// ListMeetingFixtures lists meetings near the current date for the
// race-card watcher.
func (s *Store) ListMeetingFixtures(ctx context.Context) ([]MeetingFixture, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listMeetingFixturesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list meeting fixtures: %w", queryErr)
	}
	defer rows.Close()

	fixtures := make([]MeetingFixture, 0)
	for rows.Next() {
		var f MeetingFixture
		var raceDate time.Time
		if err := rows.Scan(&raceDate, &f.VenueCode, &f.DrawDate); err != nil {
			return nil, err
		}
		f.Date = raceDate.Format("2006-01-02")
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

// ListRaceFixtures lists races near the current date for the odds watcher.
func (s *Store) ListRaceFixtures(ctx context.Context) ([]RaceFixture, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRaceFixturesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list race fixtures: %w", queryErr)
	}
	defer rows.Close()

	fixtures := make([]RaceFixture, 0)
	for rows.Next() {
		var f RaceFixture
		var raceDate time.Time
		if err := rows.Scan(&raceDate, &f.VenueCode, &f.RaceNo, &f.OffTimeLocal); err != nil {
			return nil, err
		}
		f.Date = raceDate.Format("2006-01-02")
		fixtures = append(fixtures, f)
	}
	return fixtures, rows.Err()
}

// UpsertLatestOdds unconditionally overwrites the latest projection for one
// runner.
func (s *Store) UpsertLatestOdds(ctx context.Context, key QuoteKey, latest LatestOdds) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, upsertLatestOddsSQL,
		key.Date,
		key.VenueCode,
		key.RaceNo,
		key.HorseNo,
		nullableDecimal(latest.Win),
		nullableDecimal(latest.Place),
		latest.UpdatedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert latest odds: %w", execErr)
	}
	return nil
}

// GetLastSnapshot returns the most recent stored value for a (key, pool)
// pair, or nil when history is empty.
func (s *Store) GetLastSnapshot(ctx context.Context, key QuoteKey, poolType string) (*decimal.Decimal, error) {
	dbPool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	var oddsStr string
	scanErr := dbPool.QueryRow(ctx, getLastSnapshotSQL,
		key.Date, key.VenueCode, key.RaceNo, key.HorseNo, poolType,
	).Scan(&oddsStr)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, nil
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get last snapshot: %w", scanErr)
	}
	odds, convErr := decimal.NewFromString(oddsStr)
	if convErr != nil {
		return nil, fmt.Errorf("parse snapshot odds: %w", convErr)
	}
	return &odds, nil
}

// AppendSnapshot appends one observation to the history.
func (s *Store) AppendSnapshot(ctx context.Context, key QuoteKey, poolType string, odds decimal.Decimal, ts time.Time) error {
	dbPool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := dbPool.Exec(ctx, appendSnapshotSQL,
		key.Date, key.VenueCode, key.RaceNo, key.HorseNo, poolType, odds.String(), ts,
	)
	if execErr != nil {
		return fmt.Errorf("append snapshot: %w", execErr)
	}
	return nil
}

// ListRecentSnapshots lists the most recent snapshots across all fixtures.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()
	return scanSnapshots(rows, limit)
}

// ListRunnerSnapshots lists one runner's history for a pool in time order.
func (s *Store) ListRunnerSnapshots(ctx context.Context, key QuoteKey, poolType string) ([]SnapshotRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRunnerSnapshotsSQL,
		key.Date, key.VenueCode, key.RaceNo, key.HorseNo, poolType,
	)
	if queryErr != nil {
		return nil, fmt.Errorf("list runner snapshots: %w", queryErr)
	}
	defer rows.Close()
	return scanSnapshots(rows, 0)
}

func scanSnapshots(rows pgx.Rows, hint int) ([]SnapshotRow, error) {
	snaps := make([]SnapshotRow, 0, hint)
	for rows.Next() {
		var (
			snap    SnapshotRow
			oddsStr string
		)
		if err := rows.Scan(
			&snap.Key.Date,
			&snap.Key.VenueCode,
			&snap.Key.RaceNo,
			&snap.Key.HorseNo,
			&snap.Pool,
			&oddsStr,
			&snap.SnapshotTS,
		); err != nil {
			return nil, err
		}
		odds, convErr := decimal.NewFromString(oddsStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse snapshot odds: %w", convErr)
		}
		snap.Odds = odds
		snaps = append(snaps, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snaps, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDecimal(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}
