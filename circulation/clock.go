package circulation

import "time"

// Clock supplies the current date to the circulation core. Injecting it
// keeps fine and due-date computations deterministic in tests.
type Clock interface {
	Today() time.Time
}

type systemClock struct{}

func (systemClock) Today() time.Time { return DateOf(time.Now()) }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// fixedClock always reports the same date.
type fixedClock struct{ day time.Time }

func (c fixedClock) Today() time.Time { return c.day }

// FixedClock returns a Clock pinned to the given date.
func FixedClock(day time.Time) Clock { return fixedClock{day: DateOf(day)} }

// DateOf truncates a timestamp to its calendar date in UTC. The core works
// at day granularity; every stored date goes through this.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC calendar date. Convenience for callers and tests.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of whole days from one date to another.
// Dates in the core are normalized to midnight UTC, so plain division is
// exact; with raw timestamps this floors, matching whole-days-overdue math.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
