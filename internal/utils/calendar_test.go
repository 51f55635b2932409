package contextutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    time.Time
		loc      *time.Location
		expected string
	}{
		{
			name:     "utc midday",
			input:    time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: "2026-03-04",
		},
		{
			name:     "utc timestamp lands on previous day in new york",
			input:    time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC),
			loc:      ny,
			expected: "2026-03-03",
		},
		{
			name:     "nil location defaults to utc",
			input:    time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC),
			loc:      nil,
			expected: "2026-03-04",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DayKey(tt.input, tt.loc)
			assert.Equal(t, tt.expected, FormatDayKey(got))
			assert.Equal(t, 0, got.Hour())
			assert.Equal(t, 0, got.Minute())
			assert.Equal(t, 0, got.Second())
		})
	}
}

func TestDayKeyIdempotent(t *testing.T) {
	day := DayKey(time.Date(2026, 7, 15, 18, 45, 0, 0, time.UTC), time.UTC)
	assert.True(t, day.Equal(DayKey(day, time.UTC)))
}

func TestParseDayKey(t *testing.T) {
	got, err := ParseDayKey("2026-03-04", time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)))

	_, err = ParseDayKey("03/04/2026", time.UTC)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidFormat, GetErrorCode(err))
}

func TestStartOfISOWeek(t *testing.T) {
	tests := []struct {
		name     string
		day      string
		expected string
	}{
		{"monday maps to itself", "2026-03-02", "2026-03-02"},
		{"wednesday maps back to monday", "2026-03-04", "2026-03-02"},
		{"sunday maps back six days", "2026-03-08", "2026-03-02"},
		{"week spanning month boundary", "2026-04-01", "2026-03-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := ParseDayKey(tt.day, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, FormatDayKey(StartOfISOWeek(day)))
		})
	}
}

func TestWeekDays(t *testing.T) {
	// 2026-03-04 is a Wednesday.
	ref := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	t.Run("full week always spans monday through sunday", func(t *testing.T) {
		days := WeekDays(ref, true, time.UTC)
		require.Len(t, days, 7)
		assert.Equal(t, "2026-03-02", FormatDayKey(days[0]))
		assert.Equal(t, "2026-03-08", FormatDayKey(days[6]))
		for i := 1; i < len(days); i++ {
			assert.Equal(t, days[i-1].AddDate(0, 0, 1), days[i])
		}
	})

	t.Run("partial week starts at reference day", func(t *testing.T) {
		days := WeekDays(ref, false, time.UTC)
		require.Len(t, days, 5)
		assert.Equal(t, "2026-03-04", FormatDayKey(days[0]))
		assert.Equal(t, "2026-03-08", FormatDayKey(days[4]))
	})

	t.Run("partial week on monday equals full week", func(t *testing.T) {
		monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, WeekDays(monday, true, time.UTC), WeekDays(monday, false, time.UTC))
	})

	t.Run("partial week on sunday yields one day", func(t *testing.T) {
		sunday := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
		days := WeekDays(sunday, false, time.UTC)
		require.Len(t, days, 1)
		assert.Equal(t, "2026-03-08", FormatDayKey(days[0]))
	})
}

func TestWeekPeriodKey(t *testing.T) {
	assert.Equal(t, "2026-W10", WeekPeriodKey(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), time.UTC))
	// Jan 1 2027 falls in ISO week 53 of 2026.
	assert.Equal(t, "2026-W53", WeekPeriodKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC))
}

func TestShortAgo(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		t        time.Time
		expected string
	}{
		{"seconds", now.Add(-37 * time.Second), "37s ago"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-49 * time.Hour), "2d ago"},
		{"future clamps to zero", now.Add(10 * time.Second), "0s ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortAgo(tt.t, now))
		})
	}
}
