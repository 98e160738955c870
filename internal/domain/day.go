package domain

import "time"

// DayLayout is the storage and wire format of a calendar day.
const DayLayout = "2006-01-02"

// NormalizeDay truncates t to midnight of its calendar day in t's location.
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Today returns the current local day.
func Today() time.Time {
	return NormalizeDay(time.Now().In(time.Local))
}

// AddDays moves a normalised day by n calendar days, keeping it at midnight
// across DST changes.
func AddDays(day time.Time, n int) time.Time {
	return NormalizeDay(day.AddDate(0, 0, n))
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// DayKey formats a day as YYYY-MM-DD.
func DayKey(day time.Time) string {
	return day.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD key into local midnight.
func ParseDay(key string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, key, time.Local)
}
