package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2025, time.March)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, PlatformTZ), start)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, PlatformTZ), end)

	// Декабрь переходит в следующий год.
	start, end = MonthBounds(2024, time.December)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, PlatformTZ), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, PlatformTZ), end)
}

func TestInMonth_HalfOpen(t *testing.T) {
	start, end := MonthBounds(2025, time.March)

	assert.True(t, InMonth(start, 2025, time.March))
	assert.True(t, InMonth(end.Add(-time.Second), 2025, time.March))
	assert.False(t, InMonth(end, 2025, time.March))
	assert.False(t, InMonth(start.Add(-time.Second), 2025, time.March))
}

func TestInMonth_TimezoneBoundary(t *testing.T) {
	// 28 февраля 23:00 UTC - это уже 1 марта 04:00 платформенного времени.
	utcEve := time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)

	assert.True(t, InMonth(utcEve, 2025, time.March))
	assert.False(t, InMonth(utcEve, 2025, time.February))
}

func TestStartOfMonth(t *testing.T) {
	mid := time.Date(2025, 3, 15, 13, 45, 0, 0, PlatformTZ)

	assert.Equal(t, Date(2025, 3, 1), StartOfMonth(mid))
	assert.Equal(t, Date(2025, 4, 1), NextMonthStart(mid))
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2025, 3, 15, 13, 45, 12, 0, PlatformTZ)
	assert.Equal(t, Date(2025, 3, 15), StartOfDay(at))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-03", MonthKey(2025, time.March))
	assert.Equal(t, "2024-12", MonthKey(2024, time.December))
}

func TestParseMonthKey(t *testing.T) {
	year, month, err := ParseMonthKey("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.March, month)

	for _, key := range []string{"", "2025", "2025/03", "march-2025"} {
		_, _, err := ParseMonthKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestIsSameDay(t *testing.T) {
	morning := time.Date(2025, 3, 15, 8, 0, 0, 0, PlatformTZ)
	evening := time.Date(2025, 3, 15, 23, 0, 0, 0, PlatformTZ)
	nextDay := time.Date(2025, 3, 16, 0, 30, 0, 0, PlatformTZ)

	assert.True(t, IsSameDay(morning, evening))
	assert.False(t, IsSameDay(evening, nextDay))

	// 15 марта 22:00 UTC - это уже 16 марта платформенного времени.
	utcLate := time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC)
	assert.True(t, IsSameDay(utcLate, nextDay))
}

func TestToPlatform(t *testing.T) {
	utc := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	p := ToPlatform(utc)

	assert.Equal(t, 5, p.Hour())
	assert.True(t, p.Equal(utc))
}
