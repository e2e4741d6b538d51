package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	valid := []string{
		"* * * * *",
		"*/15 * * * *",
		"0 2 * * *",
		"0 0 1 * *",
		"0,30 * * * *",
		"0 9-17 * * *",
		"0 0 * * 0",
	}
	for _, expr := range valid {
		ce, err := ParseCronExpression(expr)
		require.NoError(t, err, "expression %q", expr)
		assert.Equal(t, expr, ce.String())
	}

	invalid := []string{
		"",
		"* * * *",
		"* * * * * *",
		"60 * * * *",
		"* 24 * * *",
		"*/0 * * * *",
		"a * * * *",
	}
	for _, expr := range invalid {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestCronExpression_Next(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 7, 30, 0, time.UTC)

	every15, err := ParseCronExpression("*/15 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 15, 0, 0, time.UTC), every15.Next(base))

	nightly, err := ParseCronExpression("0 2 * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), nightly.Next(base))

	// 10 марта 2025 - понедельник, ближайшее воскресенье - 16-е.
	weekly, err := ParseCronExpression("0 0 * * 0")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), weekly.Next(base))

	monthly, err := ParseCronExpression("0 0 1 * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), monthly.Next(base))
}

func TestCronSchedule_EvaluatesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)

	schedule, err := NewCronSchedule("0 2 * * *", loc)
	require.NoError(t, err)

	// Полночь UTC - это уже 05:00 в зоне расписания, ближайшие 02:00
	// наступают только на следующие локальные сутки.
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	next := schedule.Next(base)
	assert.True(t, next.Equal(time.Date(2025, 3, 11, 2, 0, 0, 0, loc)))

	assert.Contains(t, schedule.String(), "cron(")
}

func TestCronSchedule_InvalidExpression(t *testing.T) {
	_, err := NewCronSchedule("not a cron", nil)
	assert.Error(t, err)
}
