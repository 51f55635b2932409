//go:build integration

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practiceapp/internal/models"
	contextutils "practiceapp/internal/utils"
)

func TestEnsureWindowProvisionsAndStaysIdempotent(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	user := createTestUser(t, h, "window_user")
	lang := createTestLanguage(t, h, "es")
	seedTestQuestions(t, h, lang.ID, 9)

	today := contextutils.DayKey(time.Now(), h.cfg.ReferenceLocation())
	days := []time.Time{today, today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)}

	sessions, err := h.practice.EnsureWindow(ctx, user.ID, lang.ID, days)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	// Every day gets a full bank and no question appears twice in the window
	seen := make(map[int]bool)
	firstIDs := make(map[string]int)
	for _, session := range sessions {
		assert.Equal(t, models.PracticeStatusAssigned, session.Status)
		questionIDs := sessionQuestionIDs(t, db, session.ID)
		require.Len(t, questionIDs, h.cfg.Practice.DailyBankSize)
		for _, questionID := range questionIDs {
			assert.False(t, seen[questionID], "question %d assigned twice", questionID)
			seen[questionID] = true
		}
		firstIDs[contextutils.FormatDayKey(session.PracticeDate)] = session.ID
	}

	// A second call finds the window already provisioned and changes nothing
	again, err := h.practice.EnsureWindow(ctx, user.ID, lang.ID, days)
	require.NoError(t, err)
	require.Len(t, again, 3)
	for _, session := range again {
		assert.Equal(t, firstIDs[contextutils.FormatDayKey(session.PracticeDate)], session.ID)
	}

	var sessionCount int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM practice_sessions WHERE user_id = $1", user.ID).Scan(&sessionCount)
	require.NoError(t, err)
	assert.Equal(t, 3, sessionCount)
}

func TestCreateSessionAbsorbsDuplicateDayWithoutLeakingConnection(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	user := createTestUser(t, h, "race_user")
	lang := createTestLanguage(t, h, "es")
	questions := seedTestQuestions(t, h, lang.ID, 6)

	today := contextutils.DayKey(time.Now(), h.cfg.ReferenceLocation())

	created, err := h.practice.createSession(ctx, user.ID, lang.ID, today, questions[:3])
	require.NoError(t, err)
	assert.True(t, created)

	// The same day again simulates the loser of a concurrent provisioning
	// race: absorbed silently, reported as not created, and the open
	// transaction's connection returned to the pool.
	created, err = h.practice.createSession(ctx, user.ID, lang.ID, today, questions[3:])
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, db.Stats().InUse, "absorbed duplicate must not hold a pool connection")

	// The winner's items stand untouched
	var itemCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM practice_items pi
		 JOIN practice_sessions ps ON ps.id = pi.practice_id
		 WHERE ps.user_id = $1`, user.ID).Scan(&itemCount)
	require.NoError(t, err)
	assert.Equal(t, 3, itemCount)
}

func TestSubmitPracticeScoresExactlyOnce(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	user := createTestUser(t, h, "submit_user")
	lang := createTestLanguage(t, h, "es")
	seedTestQuestions(t, h, lang.ID, 3)

	today := contextutils.DayKey(time.Now(), h.cfg.ReferenceLocation())
	sessions, err := h.practice.EnsureWindow(ctx, user.ID, lang.ID, []time.Time{today})
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	session, err := h.practice.GetPracticeByID(ctx, user.ID, sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, session.Items, 3)

	// Two right, one wrong
	answers := []models.PracticeAnswer{
		{QuestionID: session.Items[0].QuestionID, Status: models.ItemStatusAnswered, Answer: session.Items[0].Question.CorrectAnswer},
		{QuestionID: session.Items[1].QuestionID, Status: models.ItemStatusAnswered, Answer: session.Items[1].Question.CorrectAnswer},
		{QuestionID: session.Items[2].QuestionID, Status: models.ItemStatusAnswered, Answer: "not even close"},
	}

	result, err := h.practice.SubmitPractice(ctx, user.ID, session.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 1, result.Wrong)
	assert.False(t, result.Perfect)
	assert.Equal(t, 20, result.XPEarned)

	statsAfterFirst, err := h.users.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, result.XPEarned, statsAfterFirst.XP)
	assert.Equal(t, result.GemsEarned, statsAfterFirst.Gems)

	// Resubmitting the completed session fails and rewards nothing further
	_, err = h.practice.SubmitPractice(ctx, user.ID, session.ID, answers)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrPracticeAlreadySubmitted))

	statsAfterSecond, err := h.users.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, statsAfterFirst.XP, statsAfterSecond.XP)
	assert.Equal(t, statsAfterFirst.Gems, statsAfterSecond.Gems)
	assert.Equal(t, statsAfterFirst.Streak, statsAfterSecond.Streak)
}

func TestGetReviewSetReturnsAllMistakesDedupedToLatestAttempt(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	user := createTestUser(t, h, "review_user")
	lang := createTestLanguage(t, h, "es")
	questions := seedTestQuestions(t, h, lang.ID, 25)

	loc := h.cfg.ReferenceLocation()
	twoDaysAgo := contextutils.DayKey(time.Now().AddDate(0, 0, -2), loc)
	yesterday := contextutils.DayKey(time.Now().AddDate(0, 0, -1), loc)

	// An older wrong attempt at the first question, superseded the next day
	insertHistoricalSession(t, db, user.ID, lang.ID, twoDaysAgo, []answeredFixture{
		{questionID: questions[0].ID, status: models.ItemStatusAnswered, userAnswer: "stale guess", isCorrect: false, answeredAt: twoDaysAgo.Add(10 * time.Hour)},
	})

	fixtures := make([]answeredFixture, 0, len(questions))
	for i, q := range questions {
		if i%5 == 4 {
			fixtures = append(fixtures, answeredFixture{
				questionID: q.ID, status: models.ItemStatusSkipped,
				answeredAt: yesterday.Add(10 * time.Hour),
			})
			continue
		}
		fixtures = append(fixtures, answeredFixture{
			questionID: q.ID, status: models.ItemStatusAnswered,
			userAnswer: "fresh guess", isCorrect: false,
			answeredAt: yesterday.Add(10 * time.Hour),
		})
	}
	insertHistoricalSession(t, db, user.ID, lang.ID, yesterday, fixtures)

	items, err := h.practice.GetReviewSet(ctx, user.ID)
	require.NoError(t, err)

	// One entry per distinct question, no truncation
	require.Len(t, items, len(questions))
	byQuestion := make(map[int]models.ReviewItem, len(items))
	for _, item := range items {
		_, dup := byQuestion[item.Question.ID]
		assert.False(t, dup, "question %d listed twice", item.Question.ID)
		byQuestion[item.Question.ID] = item
	}

	latest, ok := byQuestion[questions[0].ID]
	require.True(t, ok)
	require.NotNil(t, latest.UserAnswer)
	assert.Equal(t, "fresh guess", *latest.UserAnswer)
}
