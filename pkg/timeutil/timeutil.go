// Package timeutil provides calendar utilities in the platform timezone (UTC+5).
// All leaderboard months and activity windows are interpreted in platform time,
// regardless of where individual events were recorded.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// PlatformTZ is the platform timezone (UTC+5, no DST).
var PlatformTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(PlatformTZ)
}

// ToPlatform converts a time to the platform timezone.
func ToPlatform(t time.Time) time.Time {
	return t.In(PlatformTZ)
}

// Date creates a time in the platform timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, PlatformTZ)
}

// StartOfDay returns the start of the day (00:00:00) in platform time.
func StartOfDay(t time.Time) time.Time {
	p := ToPlatform(t)
	return time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, PlatformTZ)
}

// StartOfMonth returns the first instant of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	p := ToPlatform(t)
	return time.Date(p.Year(), p.Month(), 1, 0, 0, 0, 0, PlatformTZ)
}

// NextMonthStart returns the first instant of the month after the one containing t.
func NextMonthStart(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0)
}

// MonthBounds returns the half-open interval [start, end) covering the given
// calendar month in platform time. An event belongs to the month when
// !ts.Before(start) && ts.Before(end).
func MonthBounds(year int, month time.Month) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, PlatformTZ)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// InMonth reports whether ts falls inside the calendar month of the given year.
func InMonth(ts time.Time, year int, month time.Month) bool {
	start, end := MonthBounds(year, month)
	return !ts.Before(start) && ts.Before(end)
}

// DaysSince calculates the number of whole days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	return int(now.Sub(then).Hours() / 24)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatMonth is the month key format (YYYY-MM) used in cache keys and APIs.
	FormatMonth = "2006-01"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// MonthKey formats a year/month pair as YYYY-MM.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParseMonthKey parses a YYYY-MM string into a year/month pair.
func ParseMonthKey(key string) (int, time.Month, error) {
	t, err := time.ParseInLocation(FormatMonth, key, PlatformTZ)
	if err != nil {
		return 0, 0, fmt.Errorf("parse month key %q: %w", key, err)
	}
	return t.Year(), t.Month(), nil
}

// IsSameDay checks if two times are on the same day in platform time.
func IsSameDay(t1, t2 time.Time) bool {
	p1, p2 := ToPlatform(t1), ToPlatform(t2)
	return p1.Year() == p2.Year() && p1.YearDay() == p2.YearDay()
}

// ParsePlatform parses a time string in the platform timezone.
func ParsePlatform(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, PlatformTZ)
}
