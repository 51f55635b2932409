package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"practiceapp/internal/models"
)

func conditionFor(t *testing.T, code string) achievementCondition {
	t.Helper()
	for _, condition := range achievementConditions {
		if condition.code == code {
			return condition
		}
	}
	t.Fatalf("no condition registered for %s", code)
	return achievementCondition{}
}

func TestAchievementConditions(t *testing.T) {
	t.Run("first practice", func(t *testing.T) {
		c := conditionFor(t, models.AchievementFirstPractice)
		assert.False(t, c.check(achievementStats{}))
		assert.True(t, c.check(achievementStats{CompletedCount: 1}))
	})

	t.Run("perfect day", func(t *testing.T) {
		c := conditionFor(t, models.AchievementPerfectDay)
		assert.False(t, c.check(achievementStats{CompletedCount: 5}))
		assert.True(t, c.check(achievementStats{PerfectCount: 1}))
	})

	t.Run("week streak", func(t *testing.T) {
		c := conditionFor(t, models.AchievementWeekStreak)
		assert.False(t, c.check(achievementStats{Streak: 6}))
		assert.True(t, c.check(achievementStats{Streak: 7}))
		assert.True(t, c.check(achievementStats{Streak: 30}))
	})

	t.Run("hundred xp", func(t *testing.T) {
		c := conditionFor(t, models.AchievementHundredXP)
		assert.False(t, c.check(achievementStats{XP: 99}))
		assert.True(t, c.check(achievementStats{XP: 100}))
	})

	t.Run("hundred answers", func(t *testing.T) {
		c := conditionFor(t, models.AchievementHundredAnswers)
		assert.False(t, c.check(achievementStats{AnsweredCount: 99}))
		assert.True(t, c.check(achievementStats{AnsweredCount: 100}))
	})
}
