package contextutils

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical date-only format used to key practice sessions.
const DayKeyLayout = "2006-01-02"

// DayKey truncates a timestamp to midnight of its calendar day in the given
// reference location. The location is an explicit parameter so callers never
// depend on ambient process timezone state.
func DayKey(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatDayKey renders a day key as YYYY-MM-DD.
func FormatDayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD string into a day key in the given location.
func ParseDayKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DayKeyLayout, s, loc)
	if err != nil {
		return time.Time{}, NewAppErrorWithCause(ErrorCodeInvalidFormat, SeverityWarn,
			"Invalid date format", fmt.Sprintf("expected %s, got %q", DayKeyLayout, s), err)
	}
	return t, nil
}

// StartOfISOWeek returns the Monday of the ISO week containing the given day key.
func StartOfISOWeek(day time.Time) time.Time {
	// time.Weekday has Sunday = 0; shift so Monday = 0.
	delta := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -delta)
}

// WeekDays returns the ordered day keys of the ISO week (Monday origin)
// containing ref. With full set, all 7 days are returned; otherwise only the
// days from ref through the end of that week, inclusive.
func WeekDays(ref time.Time, full bool, loc *time.Location) []time.Time {
	day := DayKey(ref, loc)
	start := StartOfISOWeek(day)

	days := make([]time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		if !full && d.Before(day) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// WeekPeriodKey returns the ISO year-week identifier (e.g. "2026-W36") for
// the day containing t. Used to bucket leaderboard credit by week.
func WeekPeriodKey(t time.Time, loc *time.Location) string {
	year, week := DayKey(t, loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ShortAgo renders a compact relative-time label ("37s ago", "5m ago",
// "3h ago", "2d ago") for the elapsed time between t and now.
func ShortAgo(t, now time.Time) string {
	sec := int(now.Sub(t).Seconds())
	if sec < 0 {
		sec = 0
	}
	if sec < 60 {
		return fmt.Sprintf("%ds ago", sec)
	}
	min := sec / 60
	if min < 60 {
		return fmt.Sprintf("%dm ago", min)
	}
	hr := min / 60
	if hr < 24 {
		return fmt.Sprintf("%dh ago", hr)
	}
	return fmt.Sprintf("%dd ago", hr/24)
}
