// Package streaks advances journaling streaks and unlocks achievements after
// each saved entry. Evaluation runs off the request path: failures are logged
// and never surface to the entry author.
package streaks

import "time"

// Outcome describes what a single evaluation did to the streak.
type Outcome string

const (
	// OutcomeAdvanced means the streak grew, including the first entry ever.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeReset means a gap of two or more days restarted the streak at 1.
	OutcomeReset Outcome = "reset"
	// OutcomeNoop means the user already journaled today; nothing changed.
	OutcomeNoop Outcome = "noop"
)

// midnightUTC truncates a timestamp to the start of its UTC calendar day.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Evaluate computes the next current-streak value from the stored last entry
// date. Days are UTC calendar days. A stored date in the future (clock skew
// between writers) counts as today.
func Evaluate(lastEntry *time.Time, current int, now time.Time) (int, Outcome) {
	today := midnightUTC(now)

	if lastEntry == nil {
		return 1, OutcomeAdvanced
	}

	last := midnightUTC(*lastEntry)
	switch {
	case !last.Before(today):
		return current, OutcomeNoop
	case last.Equal(today.AddDate(0, 0, -1)):
		return current + 1, OutcomeAdvanced
	default:
		return 1, OutcomeReset
	}
}
