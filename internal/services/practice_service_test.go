package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"practiceapp/internal/models"
)

func TestComputeReward(t *testing.T) {
	settings := models.RewardSettings{FullXP: 30, FullGems: 50, DailyBankSize: 10}

	tests := []struct {
		name        string
		correct     int
		wrong       int
		skipped     int
		wantXP      int
		wantGems    int
		wantPerfect bool
	}{
		{
			name:    "all correct earns full rewards",
			correct: 10, wrong: 0, skipped: 0,
			wantXP: 30, wantGems: 50, wantPerfect: true,
		},
		{
			name:    "single correct perfect session",
			correct: 1, wrong: 0, skipped: 0,
			wantXP: 30, wantGems: 50, wantPerfect: true,
		},
		{
			name:    "proportional with truncation",
			correct: 8, wrong: 1, skipped: 1,
			wantXP: 24, wantGems: 40, wantPerfect: false,
		},
		{
			name:    "skip alone breaks perfect",
			correct: 9, wrong: 0, skipped: 1,
			wantXP: 27, wantGems: 45, wantPerfect: false,
		},
		{
			name:    "all wrong earns nothing",
			correct: 0, wrong: 10, skipped: 0,
			wantXP: 0, wantGems: 0, wantPerfect: false,
		},
		{
			name:    "nothing attempted is not perfect",
			correct: 0, wrong: 0, skipped: 0,
			wantXP: 0, wantGems: 0, wantPerfect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xp, gems, perfect := computeReward(settings, tt.correct, tt.wrong, tt.skipped)
			assert.Equal(t, tt.wantXP, xp)
			assert.Equal(t, tt.wantGems, gems)
			assert.Equal(t, tt.wantPerfect, perfect)
		})
	}
}

func TestAnswerMatches(t *testing.T) {
	assert.True(t, answerMatches("Bonjour", "bonjour"))
	assert.True(t, answerMatches("  bonjour  ", "bonjour"))
	assert.True(t, answerMatches("BONJOUR", " Bonjour "))
	assert.False(t, answerMatches("bonjour!", "bonjour"))
	assert.False(t, answerMatches("", "bonjour"))
	assert.True(t, answerMatches("", ""))
}

func TestNextStreak(t *testing.T) {
	loc := time.UTC
	today := time.Date(2026, 3, 4, 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	earlierToday := time.Date(2026, 3, 4, 9, 30, 0, 0, loc)

	t.Run("first ever practice starts at one", func(t *testing.T) {
		assert.Equal(t, 1, nextStreak(0, nil, today, loc))
	})

	t.Run("consecutive day increments", func(t *testing.T) {
		assert.Equal(t, 4, nextStreak(3, &yesterday, today, loc))
	})

	t.Run("same day holds", func(t *testing.T) {
		assert.Equal(t, 3, nextStreak(3, &earlierToday, today, loc))
	})

	t.Run("gap resets to one", func(t *testing.T) {
		assert.Equal(t, 1, nextStreak(9, &lastWeek, today, loc))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain error")))
	assert.False(t, isUniqueViolation(nil))
}

func TestShuffleReviewItemsPreservesMembership(t *testing.T) {
	items := make([]models.ReviewItem, 8)
	for i := range items {
		items[i] = models.ReviewItem{Question: models.Question{ID: i + 1}}
	}

	shuffleReviewItems(items)

	seen := make(map[int]bool, len(items))
	for _, item := range items {
		seen[item.Question.ID] = true
	}
	assert.Len(t, seen, 8)
	for id := 1; id <= 8; id++ {
		assert.True(t, seen[id], "question %d missing after shuffle", id)
	}
}
