package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMarshalJSONOmitsSecrets(t *testing.T) {
	user := User{
		ID:           1,
		Username:     "alice",
		Email:        sql.NullString{String: "alice@example.com", Valid: true},
		PasswordHash: sql.NullString{String: "secret-hash", Valid: true},
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, "alice@example.com", decoded["email"])
	assert.NotContains(t, string(data), "secret-hash")
	assert.Nil(t, decoded["timezone"])
	assert.Nil(t, decoded["learning_language"])
}

func TestQuestionMarshalJSONOmitsAnswer(t *testing.T) {
	q := Question{
		ID:            7,
		LanguageID:    1,
		Type:          QuestionTypeMultipleChoice,
		Prompt:        "How do you say hello?",
		Options:       []string{"ciao", "grazie", "prego"},
		CorrectAnswer: "ciao",
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correct_answer")
	assert.Contains(t, string(data), "How do you say hello?")
}

func TestPracticeItemMarshalJSON(t *testing.T) {
	answered := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	item := PracticeItem{
		ID:         3,
		PracticeID: 9,
		QuestionID: 7,
		Position:   2,
		UserAnswer: sql.NullString{String: "ciao", Valid: true},
		IsCorrect:  sql.NullBool{Bool: true, Valid: true},
		AnsweredAt: sql.NullTime{Time: answered, Valid: true},
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ciao", decoded["user_answer"])
	assert.Equal(t, true, decoded["is_correct"])

	unanswered := PracticeItem{ID: 4, PracticeID: 9, QuestionID: 8, Position: 3}
	data, err = json.Marshal(unanswered)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["user_answer"])
	assert.Nil(t, decoded["is_correct"])
	assert.Nil(t, decoded["answered_at"])
}

func TestPracticeSessionMarshalJSONDateOnly(t *testing.T) {
	session := PracticeSession{
		ID:           5,
		UserID:       1,
		LanguageID:   2,
		PracticeDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Status:       PracticeStatusAssigned,
		CreatedAt:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(session)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2026-03-04", decoded["practice_date"])
	assert.Equal(t, PracticeStatusAssigned, decoded["status"])
	assert.Nil(t, decoded["completed_at"])
}

func TestUserStatsMarshalJSON(t *testing.T) {
	stats := UserStats{UserID: 1, XP: 120, Gems: 40, Hearts: 5, Streak: 3}

	data, err := json.Marshal(stats)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(120), decoded["xp"])
	assert.Equal(t, float64(5), decoded["hearts"])
	assert.Nil(t, decoded["last_practiced_at"])
}
