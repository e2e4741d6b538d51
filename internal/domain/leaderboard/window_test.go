package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthWindow_Bounds(t *testing.T) {
	w := MonthWindow{Year: 2025, Month: time.March}

	from, to := w.Bounds()
	assert.Equal(t, 2025, from.Year())
	assert.Equal(t, time.March, from.Month())
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, time.April, to.Month())
	assert.Equal(t, 1, to.Day())
	assert.True(t, from.Before(to))
}

func TestMonthWindow_ContainsHalfOpen(t *testing.T) {
	w := MonthWindow{Year: 2025, Month: time.March}
	from, to := w.Bounds()

	assert.True(t, w.Contains(from))
	assert.True(t, w.Contains(to.Add(-time.Second)))
	assert.False(t, w.Contains(to))
	assert.False(t, w.Contains(from.Add(-time.Second)))
}

func TestMonthWindow_PreviousAcrossYear(t *testing.T) {
	w := MonthWindow{Year: 2025, Month: time.January}

	prev := w.Previous()
	assert.Equal(t, 2024, prev.Year)
	assert.Equal(t, time.December, prev.Month)
}

func TestMonthWindow_Key(t *testing.T) {
	assert.Equal(t, "2025-03", MonthWindow{Year: 2025, Month: time.March}.Key())
	assert.Equal(t, "2024-12", MonthWindow{Year: 2024, Month: time.December}.Key())
}

func TestParseWindowKey(t *testing.T) {
	w, err := ParseWindowKey("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, w.Year)
	assert.Equal(t, time.March, w.Month)

	for _, key := range []string{"", "2025", "2025-13", "2025-00", "garbage", "2025/03"} {
		_, err := ParseWindowKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestMonthWindow_Validate(t *testing.T) {
	assert.NoError(t, MonthWindow{Year: 2025, Month: time.March}.Validate())
	assert.Error(t, MonthWindow{Year: 1999, Month: time.March}.Validate())
	assert.Error(t, MonthWindow{Year: 2201, Month: time.March}.Validate())
	assert.Error(t, MonthWindow{Year: 2025, Month: 0}.Validate())
	assert.Error(t, MonthWindow{Year: 2025, Month: 13}.Validate())
}

func TestNewMonthWindow(t *testing.T) {
	w, err := NewMonthWindow(2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, "2025-07", w.Key())

	_, err = NewMonthWindow(1980, time.July)
	assert.Error(t, err)
}
