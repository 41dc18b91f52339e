package inventory

import (
	"fmt"
	"time"
)

// DateKeyLayout is the calendar-day key format used throughout the history store.
const DateKeyLayout = "2006-01-02"

// ParseDateKey validates a YYYY-MM-DD key and returns the local midnight it names.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", key, err)
	}
	// Round-trip guard: ParseInLocation accepts 2024-1-5 style inputs via
	// some layouts; formatting back catches non-canonical keys.
	if t.Format(DateKeyLayout) != key {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", key)
	}
	return t, nil
}

// DateKey formats a time as a calendar-day key in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Today returns today's key in the local timezone.
func Today() string {
	return DateKey(time.Now())
}

// IsFutureDate reports whether key names a calendar day after now's day.
// Entries are never created in the future; today is allowed.
func IsFutureDate(key string, now time.Time) (bool, error) {
	day, err := ParseDateKey(key)
	if err != nil {
		return false, err
	}
	today, _ := ParseDateKey(DateKey(now))
	return day.After(today), nil
}
