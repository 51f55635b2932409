package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practiceapp/internal/models"
)

func weekOf(monday time.Time) []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

func TestProjectWeekStates(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	days := weekOf(monday)
	today := monday.AddDate(0, 0, 2) // Wednesday
	now := today.Add(14 * time.Hour)

	completedAt := today.Add(-26 * time.Hour)
	sessions := map[string]DaySession{
		"2026-03-02": { // Monday: submitted
			PracticeID: 11, Status: models.PracticeStatusCompleted,
			Total: 10, Answered: 9, Correct: 8, Skipped: 1,
			XPEarned: 24, GemsEarned: 40,
			CompletedAt: &completedAt,
		},
		"2026-03-03": { // Tuesday: provisioned, never submitted
			PracticeID: 12, Status: models.PracticeStatusAssigned, Total: 10,
		},
		"2026-03-04": { // Wednesday (today): in progress
			PracticeID: 13, Status: models.PracticeStatusAssigned, Total: 10,
		},
		"2026-03-05": { // Thursday: pre-provisioned future day
			PracticeID: 14, Status: models.PracticeStatusAssigned, Total: 10,
		},
	}

	view := ProjectWeek(days, sessions, today, now)
	require.Len(t, view.Practices, 7)

	byDate := make(map[string]models.DayView, len(view.Practices))
	for _, tile := range view.Practices {
		byDate[tile.Date] = tile
	}

	assert.Equal(t, models.DayStateCompleted, byDate["2026-03-02"].State)
	assert.Equal(t, models.DayStateMissed, byDate["2026-03-03"].State)
	assert.Equal(t, models.DayStateAvailable, byDate["2026-03-04"].State)
	assert.Equal(t, models.DayStateLocked, byDate["2026-03-05"].State)
	assert.Equal(t, models.DayStateLocked, byDate["2026-03-06"].State)
	assert.Equal(t, models.DayStateLocked, byDate["2026-03-07"].State)
	assert.Equal(t, models.DayStateLocked, byDate["2026-03-08"].State)

	assert.Equal(t, 1, view.Completed)
	assert.Equal(t, 1, view.Missed)
}

func TestProjectWeekCompletedTile(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	today := monday.AddDate(0, 0, 1)
	now := today.Add(10 * time.Hour)

	completedAt := now.Add(-3 * time.Hour)
	sessions := map[string]DaySession{
		"2026-03-02": {
			PracticeID: 7, Status: models.PracticeStatusCompleted,
			Total: 10, Answered: 9, Correct: 8, Skipped: 1,
			XPEarned: 24, GemsEarned: 40,
			CompletedAt: &completedAt,
		},
	}

	view := ProjectWeek([]time.Time{monday}, sessions, today, now)
	require.Len(t, view.Practices, 1)

	tile := view.Practices[0]
	require.NotNil(t, tile.PracticeID)
	assert.Equal(t, 7, *tile.PracticeID)
	assert.Equal(t, 10, tile.Total)
	assert.Equal(t, 9, tile.Answered)
	assert.Equal(t, 8, tile.Correct)
	assert.Equal(t, 1, tile.Wrong)
	assert.Equal(t, 1, tile.Skipped)
	assert.Equal(t, 24, tile.XPEarned)
	assert.Equal(t, 40, tile.GemsEarned)
	assert.Equal(t, "3h ago", tile.CompletedAgo)
	assert.False(t, tile.IsToday)
}

func TestProjectWeekUnprovisionedPastDayStaysAvailable(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	today := monday.AddDate(0, 0, 3)

	view := ProjectWeek([]time.Time{monday}, map[string]DaySession{}, today, today)
	require.Len(t, view.Practices, 1)
	assert.Equal(t, models.DayStateAvailable, view.Practices[0].State)
	assert.Nil(t, view.Practices[0].PracticeID)
	assert.Equal(t, 0, view.Missed)
}

func TestProjectWeekTodayFlag(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	days := weekOf(monday)
	today := monday.AddDate(0, 0, 4) // Friday

	view := ProjectWeek(days, map[string]DaySession{}, today, today)
	require.Len(t, view.Practices, 7)
	for i, tile := range view.Practices {
		assert.Equal(t, i == 4, tile.IsToday, "day %s", tile.Date)
	}
}
