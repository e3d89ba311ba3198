package scheduler

import "time"

// Phase is the watch state of one fixture at one instant. Phases are derived
// fresh from the clock on every evaluation and only ever move forward:
// Dormant, HourlyWatch, CloseWatch, Expired.
type Phase int

const (
	// Dormant fixtures are before their watch-start; they never fire.
	Dormant Phase = iota
	// HourlyWatch fixtures are being tracked loosely: fire once per hour.
	HourlyWatch
	// CloseWatch fixtures are near their off time: fire on every tick.
	CloseWatch
	// Expired fixtures are past post plus grace; they never fire again.
	Expired
)

func (p Phase) String() string {
	switch p {
	case Dormant:
		return "dormant"
	case HourlyWatch:
		return "hourly_watch"
	case CloseWatch:
		return "close_watch"
	case Expired:
		return "expired"
	}
	return "unknown"
}

const (
	// closeWatchLead is how long before the off time polling tightens to
	// every tick.
	closeWatchLead = 30 * time.Minute
	// expiryGrace keeps polling briefly past the off time; prices move
	// until the gate actually springs.
	expiryGrace = 5 * time.Minute
)

// Window is one fixture's watch definition: the authoritative local event
// time and the watch-start. A zero WatchFrom means the fixture is always
// watched once registered.
type Window struct {
	EventTime time.Time
	WatchFrom time.Time
}

// Evaluate derives the fixture's phase at now. Nothing is stored; repeated
// evaluation with the same clock is idempotent.
func (w Window) Evaluate(now time.Time) Phase {
	if !w.WatchFrom.IsZero() && now.Before(w.WatchFrom) {
		return Dormant
	}
	untilOff := w.EventTime.Sub(now)
	switch {
	case untilOff < -expiryGrace:
		return Expired
	case untilOff > closeWatchLead:
		return HourlyWatch
	default:
		return CloseWatch
	}
}

// ShouldFire reports whether an invocation at now should trigger ingestion.
// hourlyMark is the clock minute at which HourlyWatch fixtures fire, so a
// once-per-minute driver yields effectively one fetch per hour.
func (w Window) ShouldFire(now time.Time, hourlyMark int) bool {
	switch w.Evaluate(now) {
	case CloseWatch:
		return true
	case HourlyWatch:
		return now.Minute() == hourlyMark
	default:
		return false
	}
}

// OddsWatchStart is the odds-fixture watch-start: one calendar day before
// the race day, at the given clock hour, in the race day's zone.
func OddsWatchStart(raceDay time.Time, hour int) time.Time {
	d := raceDay.AddDate(0, 0, -1)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, raceDay.Location())
}

// CardWatchStart is the race-card watch-start: noon-ish of the declaration
// day, in that day's zone.
func CardWatchStart(drawDay time.Time, hour int) time.Time {
	return time.Date(drawDay.Year(), drawDay.Month(), drawDay.Day(), hour, 0, 0, 0, drawDay.Location())
}
