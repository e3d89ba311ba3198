package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeetingKey identifies one meeting fixture.
type MeetingKey struct {
	Date      string // YYYY-MM-DD
	VenueCode string
}

// QuoteKey is the natural key of one runner's odds cell.
type QuoteKey struct {
	Date      string
	VenueCode string
	RaceNo    int
	HorseNo   int
}

// MeetingFixture is a fixture-registry row for race-card ingestion: the
// meeting plus its declaration date (watch-start anchor).
type MeetingFixture struct {
	Date      string
	VenueCode string
	DrawDate  string
}

// RaceFixture is a fixture-registry row for odds ingestion.
type RaceFixture struct {
	Date      string
	VenueCode string
	RaceNo    int
	// OffTimeLocal is the scheduled local "HH:MM"; the scheduler combines
	// it with Date in the fixed track zone.
	OffTimeLocal string
}

// LatestOdds is the latest-value projection written on every observation.
type LatestOdds struct {
	Win       *decimal.Decimal
	Place     *decimal.Decimal
	UpdatedAt time.Time
}

// SnapshotRow is one appended observation of one (key, pool) cell.
type SnapshotRow struct {
	Key        QuoteKey
	Pool       string
	Odds       decimal.Decimal
	SnapshotTS time.Time
}
