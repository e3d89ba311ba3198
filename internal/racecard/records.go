package racecard

import "time"

// Meeting is one calendar fixture at one venue. Repeated ingestion upserts
// into the same meeting; meetings are never deleted.
type Meeting struct {
	Date      string // YYYY-MM-DD
	VenueCode string // ST / HV
	Races     []Race
}

// Race is a single race of a meeting. The three off-time representations are
// co-derived from Date + OffTimeLocal in the fixed track zone and are never
// stored independently of each other.
type Race struct {
	RaceNo       int
	NameZH       string
	NameEN       string
	OffTimeLocal string // "HH:MM"
	OffTimeZoned string // ISO-8601 with +08:00 offset
	OffTimeUTC   string // ISO-8601 with literal "Z"
	DistanceM    *int
	Surface      string
	CourseLine   string // A / B / C / C+3 ...
	Going        string
	ClassText    string
	Handicap     string
	Entries      []Entry
	Reserves     []Entry
}

// Entry is one declared runner. Numeric fields are nil when the source cell
// was missing or failed coercion; Draw is 1..20 when set.
type Entry struct {
	HorseNo         *int
	Last6           string
	Silks           string
	HorseName       string
	Brand           string
	WeightLB        *int
	Jockey          string
	Draw            *int
	Trainer         string
	Rating          *int
	RatingDelta     string
	DeclaredWt      *int
	DeclaredWtDelta string
	Age             *int
	WFA             string
	Sex             string
	SeasonStakes    string
	Priority        string
	DaysSince       string
	Gear            string
	Owner           string
	Sire            string
	Dam             string
	ImportCat       string
	Reserve         bool
}

// trackZone is the authoritative zone for all off times.
var trackZone = mustLoadZone()

func mustLoadZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		// The zone is baked into the record contract; running without
		// tzdata would silently corrupt every timestamp.
		panic("load Asia/Hong_Kong: " + err.Error())
	}
	return loc
}

// ComposeOffTimes derives the zoned and UTC representations from a meeting
// date plus a local "HH:MM". Reading the local component back returns the
// original value. Empty inputs yield empty outputs.
func ComposeOffTimes(dateISO, hhmm string) (local, zoned, utc string) {
	if dateISO == "" || hhmm == "" {
		return "", "", ""
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", dateISO+" "+hhmm, trackZone)
	if err != nil {
		return "", "", ""
	}
	zoned = t.Format("2006-01-02T15:04:05-07:00")
	utc = t.UTC().Format("2006-01-02T15:04:05") + "Z"
	return hhmm, zoned, utc
}

// OffTimeAsTime rebuilds the zoned event time for scheduler use.
func OffTimeAsTime(dateISO, hhmm string) (time.Time, bool) {
	if dateISO == "" || hhmm == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", dateISO+" "+hhmm, trackZone)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TrackZone exposes the fixed venue zone to collaborators (scheduler windows
// are expressed in it).
func TrackZone() *time.Location {
	return trackZone
}
