package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Practice session status values as stored in the database
const (
	PracticeStatusAssigned  = "assigned"
	PracticeStatusCompleted = "completed"
)

// Practice item status values. Items start pending; scoring moves each
// submitted item to answered or skipped exactly once.
const (
	ItemStatusPending  = "pending"
	ItemStatusAnswered = "answered"
	ItemStatusSkipped  = "skipped"
)

// Day tile states projected for the weekly view. Only "completed" and
// "assigned" exist in storage; "locked", "available" and "missed" are
// derived from the practice date relative to the current day.
const (
	DayStateCompleted = "completed"
	DayStateLocked    = "locked"
	DayStateAvailable = "available"
	DayStateMissed    = "missed"
)

// PracticeSession represents one user-day practice assignment
type PracticeSession struct {
	ID           int            `json:"id" db:"id"`
	UserID       int            `json:"user_id" db:"user_id"`
	LanguageID   int            `json:"language_id" db:"language_id"`
	PracticeDate time.Time      `json:"practice_date" db:"practice_date"`
	Status       string         `json:"status" db:"status"`
	XPEarned     int            `json:"xp_earned" db:"xp_earned"`
	GemsEarned   int            `json:"gems_earned" db:"gems_earned"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	CompletedAt  sql.NullTime   `json:"completed_at" db:"completed_at"`
	Items        []PracticeItem `json:"items,omitempty" db:"-"`
}

// MarshalJSON customizes JSON marshaling for PracticeSession to flatten sql.Null types
func (p PracticeSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID           int            `json:"id"`
		UserID       int            `json:"user_id"`
		LanguageID   int            `json:"language_id"`
		PracticeDate string         `json:"practice_date"`
		Status       string         `json:"status"`
		XPEarned     int            `json:"xp_earned"`
		GemsEarned   int            `json:"gems_earned"`
		CreatedAt    time.Time      `json:"created_at"`
		CompletedAt  *time.Time     `json:"completed_at"`
		Items        []PracticeItem `json:"items,omitempty"`
	}{
		ID:           p.ID,
		UserID:       p.UserID,
		LanguageID:   p.LanguageID,
		PracticeDate: p.PracticeDate.Format("2006-01-02"),
		Status:       p.Status,
		XPEarned:     p.XPEarned,
		GemsEarned:   p.GemsEarned,
		CreatedAt:    p.CreatedAt,
		CompletedAt:  nullTimeToPointer(p.CompletedAt),
		Items:        p.Items,
	})
}

// PracticeItem links a question into a practice session, with the user's answer
type PracticeItem struct {
	ID         int            `json:"id" db:"id"`
	PracticeID int            `json:"practice_id" db:"practice_id"`
	QuestionID int            `json:"question_id" db:"question_id"`
	Position   int            `json:"position" db:"position"`
	Status     string         `json:"status" db:"status"`
	UserAnswer sql.NullString `json:"user_answer" db:"user_answer"`
	IsCorrect  sql.NullBool   `json:"is_correct" db:"is_correct"`
	AnsweredAt sql.NullTime   `json:"answered_at" db:"answered_at"`
	Question   *Question      `json:"question,omitempty" db:"-"`
}

// MarshalJSON customizes JSON marshaling for PracticeItem to flatten sql.Null types
func (i PracticeItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID         int        `json:"id"`
		PracticeID int        `json:"practice_id"`
		QuestionID int        `json:"question_id"`
		Position   int        `json:"position"`
		Status     string     `json:"status"`
		UserAnswer *string    `json:"user_answer"`
		IsCorrect  *bool      `json:"is_correct"`
		AnsweredAt *time.Time `json:"answered_at"`
		Question   *Question  `json:"question,omitempty"`
	}{
		ID:         i.ID,
		PracticeID: i.PracticeID,
		QuestionID: i.QuestionID,
		Position:   i.Position,
		Status:     i.Status,
		UserAnswer: nullStringToPointer(i.UserAnswer),
		IsCorrect:  nullBoolToPointer(i.IsCorrect),
		AnsweredAt: nullTimeToPointer(i.AnsweredAt),
		Question:   i.Question,
	})
}

func nullBoolToPointer(nb sql.NullBool) *bool {
	if nb.Valid {
		return &nb.Bool
	}
	return nil
}

// DayView is one projected tile in the weekly practice view
type DayView struct {
	Date         string `json:"date"`
	IsToday      bool   `json:"is_today"`
	State        string `json:"state"`
	PracticeID   *int   `json:"practice_id,omitempty"`
	Total        int    `json:"total"`
	Answered     int    `json:"answered"`
	Correct      int    `json:"correct"`
	Wrong        int    `json:"wrong"`
	Skipped      int    `json:"skipped"`
	XPEarned     int    `json:"xp_earned"`
	GemsEarned   int    `json:"gems_earned"`
	CompletedAgo string `json:"completed_ago,omitempty"`
}

// WeekView is the full projected week returned by the week endpoint
type WeekView struct {
	Practices []DayView `json:"practices"`
	Completed int       `json:"completed"`
	Missed    int       `json:"missed"`
}

// PracticeAnswer is one per-question entry in a submission request. Status
// "answered" carries a value to score; "skipped" records a deliberate pass.
type PracticeAnswer struct {
	QuestionID int    `json:"question_id" binding:"required"`
	Status     string `json:"status" binding:"required,oneof=answered skipped"`
	Answer     string `json:"answer"`
}

// SubmitPracticeRequest is the body of the practice submission endpoint
type SubmitPracticeRequest struct {
	Answers []PracticeAnswer `json:"answers" binding:"required"`
}

// SubmissionResult summarizes scoring and rewards for a completed session
type SubmissionResult struct {
	PracticeID int  `json:"practice_id"`
	Total      int  `json:"total"`
	Correct    int  `json:"correct"`
	Wrong      int  `json:"wrong"`
	Skipped    int  `json:"skipped"`
	Perfect    bool `json:"perfect"`
	XPEarned   int  `json:"xp_earned"`
	GemsEarned int  `json:"gems_earned"`
	TotalXP    int  `json:"total_xp"`
	TotalGems  int  `json:"total_gems"`
	Streak     int  `json:"streak"`
}

// ReviewItem is one entry in the shuffled review set of past mistakes
type ReviewItem struct {
	Question    Question `json:"question"`
	Status      string   `json:"status"`
	UserAnswer  *string  `json:"user_answer"`
	AnsweredAgo string   `json:"answered_ago,omitempty"`
}
