// Package models defines data structures used throughout the practice application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID               int            `json:"id" yaml:"id"`
	Username         string         `json:"username" yaml:"username"`
	Email            sql.NullString `json:"email" yaml:"email"`
	Timezone         sql.NullString `json:"timezone" yaml:"timezone"`
	PasswordHash     sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	LearningLanguage sql.NullString `json:"learning_language" yaml:"learning_language"`
	LastActive       sql.NullTime   `json:"last_active" yaml:"last_active"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.Null types properly
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID               int        `json:"id"`
		Username         string     `json:"username"`
		Email            *string    `json:"email"`
		Timezone         *string    `json:"timezone"`
		LearningLanguage *string    `json:"learning_language"`
		LastActive       *time.Time `json:"last_active"`
		CreatedAt        time.Time  `json:"created_at"`
		UpdatedAt        time.Time  `json:"updated_at"`
	}{
		ID:               u.ID,
		Username:         u.Username,
		Email:            nullStringToPointer(u.Email),
		Timezone:         nullStringToPointer(u.Timezone),
		LearningLanguage: nullStringToPointer(u.LearningLanguage),
		LastActive:       nullTimeToPointer(u.LastActive),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	})
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// Language represents a learnable language in the question bank
type Language struct {
	ID        int       `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Question represents a practice question from the bank
type Question struct {
	ID            int       `json:"id" db:"id"`
	LanguageID    int       `json:"language_id" db:"language_id"`
	Type          string    `json:"type" db:"type"`
	Prompt        string    `json:"prompt" db:"prompt"`
	Options       []string  `json:"options,omitempty" db:"options"`
	CorrectAnswer string    `json:"-" db:"correct_answer"`
	Explanation   string    `json:"explanation,omitempty" db:"explanation"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Question type constants
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeFillBlank      = "fill_blank"
	QuestionTypeTranslation    = "translation"
)

// UserStats holds the gamification counters for a user
type UserStats struct {
	UserID          int          `json:"user_id" db:"user_id"`
	XP              int          `json:"xp" db:"xp"`
	Gems            int          `json:"gems" db:"gems"`
	Hearts          int          `json:"hearts" db:"hearts"`
	Streak          int          `json:"streak" db:"streak"`
	LastPracticedAt sql.NullTime `json:"last_practiced_at" db:"last_practiced_at"`
	HeartsUpdatedAt time.Time    `json:"hearts_updated_at" db:"hearts_updated_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for UserStats
func (s UserStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		UserID          int        `json:"user_id"`
		XP              int        `json:"xp"`
		Gems            int        `json:"gems"`
		Hearts          int        `json:"hearts"`
		Streak          int        `json:"streak"`
		LastPracticedAt *time.Time `json:"last_practiced_at"`
	}{
		UserID:          s.UserID,
		XP:              s.XP,
		Gems:            s.Gems,
		Hearts:          s.Hearts,
		Streak:          s.Streak,
		LastPracticedAt: nullTimeToPointer(s.LastPracticedAt),
	})
}

// UserProgress records a user's per-question answer history
type UserProgress struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	QuestionID  int       `json:"question_id" db:"question_id"`
	IsCorrect   bool      `json:"is_correct" db:"is_correct"`
	AnsweredAt  time.Time `json:"answered_at" db:"answered_at"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"`
}

// RewardSettings holds the per-request reward and sizing configuration
type RewardSettings struct {
	FullXP        int `json:"full_xp"`
	FullGems      int `json:"full_gems"`
	DailyBankSize int `json:"daily_bank_size"`
}

// GameSetting is a key/value override row for reward tuning
type GameSetting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LeaderboardEntry represents a user's weekly XP standing
type LeaderboardEntry struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Period    string    `json:"period" db:"period"`
	XP        int       `json:"xp" db:"xp"`
	Username  string    `json:"username" db:"-"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserAchievement records an achievement a user has unlocked
type UserAchievement struct {
	ID         int       `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	Code       string    `json:"code" db:"code"`
	UnlockedAt time.Time `json:"unlocked_at" db:"unlocked_at"`
}

// Achievement codes evaluated after each submission
const (
	AchievementFirstPractice  = "first_practice"
	AchievementPerfectDay     = "perfect_day"
	AchievementWeekStreak     = "week_streak"
	AchievementHundredXP      = "hundred_xp"
	AchievementHundredAnswers = "hundred_answers"
)
