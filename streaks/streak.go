package streaks

import (
	"math/bits"
	"time"
)

// State is the persisted part of a user's streak.
type State struct {
	RawCount   int
	LastWindow *time.Time
}

// Outcome is the result of a check-in attempt.
type Outcome int

const (
	AlreadyCollected Outcome = iota
	Extended
	Reset
)

func (o Outcome) String() string {
	switch o {
	case Extended:
		return "extended"
	case Reset:
		return "reset"
	default:
		return "already_collected"
	}
}

// RecordCheckin applies a check-in at now. The returned points are zero when
// the window was already collected.
func RecordCheckin(state State, now time.Time, interval time.Duration) (State, Outcome, int, error) {
	w, err := CurrentWindow(now, interval)
	if err != nil {
		return state, AlreadyCollected, 0, err
	}

	var outcome Outcome
	switch classifyAgainst(state.LastWindow, w.Start, interval) {
	case EligibilityCurrent:
		return state, AlreadyCollected, 0, nil
	case EligibilityCarryForward:
		state.RawCount++
		outcome = Extended
	default:
		state.RawCount = 1
		outcome = Reset
	}

	start := w.Start
	state.LastWindow = &start
	return state, outcome, PointsForStreak(state.RawCount), nil
}

// PointsForStreak returns floor(log2(n)) + 1. n must be at least 1.
func PointsForStreak(n int) int {
	if n < 1 {
		panic("streaks: points requested for a streak shorter than 1")
	}
	return bits.Len(uint(n))
}

// EffectiveStreak is the streak as users see it: the raw count while the last
// check-in is in the current or previous window, zero otherwise. It never
// mutates state, so a missed streak reads as zero before any sweep runs.
func EffectiveStreak(state State, now time.Time, interval time.Duration) int {
	e, err := Classify(state.LastWindow, now, interval)
	if err != nil || e == EligibilityExpired {
		return 0
	}
	return state.RawCount
}

// IsRunningOut reports whether there is a live streak that has not been
// collected in the current window yet.
func IsRunningOut(state State, now time.Time, interval time.Duration) bool {
	e, err := Classify(state.LastWindow, now, interval)
	if err != nil {
		return false
	}
	return e == EligibilityCarryForward && state.RawCount > 0
}
