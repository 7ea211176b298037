// Package streaks buckets time into fixed check-in windows and applies the
// streak rules on top of them.
package streaks

import (
	"errors"
	"time"
)

// ErrInvalidConfiguration is returned when the window interval is not positive.
var ErrInvalidConfiguration = errors.New("window interval must be positive")

// TimeWindow is a half-open bucket [Start, End).
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CurrentWindow returns the window of size interval that contains now.
// Windows are anchored at midnight of now's calendar day in now's location and
// are never re-anchored, so an interval that does not divide 24h yields a last
// window that runs past the next midnight.
//
// Bucketing works on the wall clock: a 24h window always spans midnight to
// midnight, even on a 23h or 25h DST day.
func CurrentWindow(now time.Time, interval time.Duration) (TimeWindow, error) {
	if interval <= 0 {
		return TimeWindow{}, ErrInvalidConfiguration
	}
	wall := wallClock(now)
	base := time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, time.UTC)
	index := wall.Sub(base) / interval
	start := base.Add(index * interval)
	loc := now.Location()
	return TimeWindow{
		Start: fromWallClock(start, loc),
		End:   fromWallClock(start.Add(interval), loc),
	}, nil
}

// PreviousWindowStart returns the start of the window immediately before the
// one starting at currentStart, stepping back interval on the wall clock.
func PreviousWindowStart(currentStart time.Time, interval time.Duration) time.Time {
	return fromWallClock(wallClock(currentStart).Add(-interval), currentStart.Location())
}

// wallClock reads t's local date and time as if it were UTC.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func fromWallClock(w time.Time, loc *time.Location) time.Time {
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// Eligibility classifies a previously recorded window against the current one.
type Eligibility int

const (
	EligibilityExpired Eligibility = iota
	EligibilityCarryForward
	EligibilityCurrent
)

func (e Eligibility) String() string {
	switch e {
	case EligibilityCurrent:
		return "current"
	case EligibilityCarryForward:
		return "carry_forward"
	default:
		return "expired"
	}
}

// Classify reports whether lastWindow is the current window, the one right
// before it, or anything older. A nil lastWindow is always expired.
func Classify(lastWindow *time.Time, now time.Time, interval time.Duration) (Eligibility, error) {
	w, err := CurrentWindow(now, interval)
	if err != nil {
		return EligibilityExpired, err
	}
	return classifyAgainst(lastWindow, w.Start, interval), nil
}

func classifyAgainst(lastWindow *time.Time, currentStart time.Time, interval time.Duration) Eligibility {
	if lastWindow == nil {
		return EligibilityExpired
	}
	switch {
	case lastWindow.Equal(currentStart):
		return EligibilityCurrent
	case lastWindow.Equal(PreviousWindowStart(currentStart, interval)):
		return EligibilityCarryForward
	default:
		return EligibilityExpired
	}
}
