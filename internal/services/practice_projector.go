package services

import (
	"time"

	"practiceapp/internal/models"
	contextutils "practiceapp/internal/utils"
)

// DaySession is the per-day storage snapshot the week projector works from.
// Only sessions that exist in storage appear; days without a session project
// from the calendar alone.
type DaySession struct {
	PracticeID  int
	Status      string
	Total       int
	Answered    int
	Correct     int
	Skipped     int
	XPEarned    int
	GemsEarned  int
	CompletedAt *time.Time
}

// ProjectWeek derives display tiles for a week of day keys. Storage only
// knows "assigned" and "completed"; "locked", "available" and "missed" are
// functions of the practice date relative to today:
//
//	completed  - session submitted, any day
//	locked     - day after today
//	available  - today, not yet submitted (or a past/today day not yet provisioned)
//	missed     - day before today, provisioned but never submitted
//
// now is only used to render the completion-relative label; all state
// decisions use the date-only today key.
func ProjectWeek(days []time.Time, sessions map[string]DaySession, today, now time.Time) *models.WeekView {
	view := &models.WeekView{
		Practices: make([]models.DayView, 0, len(days)),
	}

	for _, day := range days {
		key := contextutils.FormatDayKey(day)
		tile := models.DayView{
			Date:    key,
			IsToday: day.Equal(today),
		}

		session, exists := sessions[key]
		if exists {
			id := session.PracticeID
			tile.PracticeID = &id
			tile.Total = session.Total
			tile.Answered = session.Answered
			tile.Correct = session.Correct
			tile.Wrong = session.Answered - session.Correct
			tile.Skipped = session.Skipped
			tile.XPEarned = session.XPEarned
			tile.GemsEarned = session.GemsEarned
		}

		switch {
		case exists && session.Status == models.PracticeStatusCompleted:
			tile.State = models.DayStateCompleted
			if session.CompletedAt != nil {
				tile.CompletedAgo = contextutils.ShortAgo(*session.CompletedAt, now)
			}
		case day.After(today):
			tile.State = models.DayStateLocked
		case day.Equal(today) || !exists:
			// An unprovisioned past day stays available: it will be
			// lazily provisioned on the next fetch.
			tile.State = models.DayStateAvailable
		default:
			tile.State = models.DayStateMissed
		}

		switch tile.State {
		case models.DayStateCompleted:
			view.Completed++
		case models.DayStateMissed:
			view.Missed++
		}

		view.Practices = append(view.Practices, tile)
	}

	return view
}
