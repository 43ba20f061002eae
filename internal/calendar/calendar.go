// Package calendar canonicalizes instants to local day-keys (YYYY-MM-DD) and
// does day arithmetic on them.
//
// Arithmetic is performed on UTC midnights so that DST transitions in the
// local zone never produce 23- or 25-hour days. Day-keys are zero padded, so
// lexical comparison of two keys matches chronological order.
package calendar

import (
	"time"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
)

// DayKey returns the local calendar day of t in t's own location.
func DayKey(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// ParseDayKey validates key and returns its UTC midnight.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, key)
	if err != nil || t.Format(constants.DateFormat) != key {
		return time.Time{}, derrors.InvalidArgument("malformed day key %q (expected YYYY-MM-DD)", key)
	}
	return t, nil
}

// ParseMonthKey validates key and returns the UTC midnight of the month's first day.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse(constants.MonthFormat, key)
	if err != nil || t.Format(constants.MonthFormat) != key {
		return time.Time{}, derrors.InvalidArgument("malformed month key %q (expected YYYY-MM)", key)
	}
	return t, nil
}

// ValidDayKey reports whether key is a well-formed day-key.
func ValidDayKey(key string) bool {
	_, err := ParseDayKey(key)
	return err == nil
}

// DaysBetween returns b - a in whole days. It is negative when b precedes a.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDayKey(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDayKey(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// AddDays offsets key by n days (n may be negative). Results outside years
// 0001 through 9999 have no day-key and are rejected.
func AddDays(key string, n int) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	out := t.AddDate(0, 0, n)
	if y := out.Year(); y < 1 || y > 9999 {
		return "", derrors.InvalidArgument("%s %+d days is outside the calendar", key, n)
	}
	return out.Format(constants.DateFormat), nil
}

// MustAddDays is AddDays for keys already known to be valid.
func MustAddDays(key string, n int) string {
	out, err := AddDays(key, n)
	if err != nil {
		panic(err)
	}
	return out
}

// WeekStart returns the Monday on or before key.
func WeekStart(key string) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	// time.Sunday == 0; shift so Monday is offset 0
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(constants.DateFormat), nil
}

// MonthKey returns the YYYY-MM month containing day-key key.
func MonthKey(key string) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return t.Format(constants.MonthFormat), nil
}

// MonthRange returns the first and last day-keys of monthKey.
func MonthRange(monthKey string) (string, string, error) {
	start, err := ParseMonthKey(monthKey)
	if err != nil {
		return "", "", err
	}
	end := start.AddDate(0, 1, -1)
	return start.Format(constants.DateFormat), end.Format(constants.DateFormat), nil
}

// DaysInMonth returns the true number of days in monthKey.
func DaysInMonth(monthKey string) (int, error) {
	start, end, err := MonthRange(monthKey)
	if err != nil {
		return 0, err
	}
	n, err := DaysBetween(start, end)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Range returns every day-key from start to end inclusive, oldest first.
// It returns an empty slice when end precedes start.
func Range(start, end string) ([]string, error) {
	n, err := DaysBetween(start, end)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return []string{}, nil
	}
	s, _ := ParseDayKey(start)
	keys := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		keys = append(keys, s.AddDate(0, 0, i).Format(constants.DateFormat))
	}
	return keys, nil
}

// InstantOn returns the instant on day-key key whose local clock time matches
// clock, in clock's location.
func InstantOn(key string, clock time.Time) (time.Time, error) {
	d, err := ParseDayKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(),
		clock.Location()), nil
}
