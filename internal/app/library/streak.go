package library

import "time"

// EvaluateStreak returns the new streak counter and last-activity timestamp
// for an activity event at now.
//
// Days are counted on UTC midnight boundaries. A zero lastActivity means the
// user was never active and is treated as far in the past. The counter never
// decrements: a gap of more than one day resets it to exactly 1.
func EvaluateStreak(lastActivity time.Time, streak int, now time.Time) (int, time.Time) {
	switch diff := daysBetween(lastActivity, now); {
	case diff == 1:
		streak++
	case diff > 1:
		streak = 1
	default:
		// Same day, or a last activity stamped after now by clock skew.
		if streak <= 0 {
			streak = 1
		}
	}
	return streak, now
}

// daysBetween returns the number of UTC calendar days from a to b.
// A zero a yields a value well above 1.
func daysBetween(a, b time.Time) int {
	if a.IsZero() {
		return 1 << 30
	}
	return int(midnightUTC(b).Sub(midnightUTC(a)) / (24 * time.Hour))
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
