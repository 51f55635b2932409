//go:build integration

package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"practiceapp/internal/config"
	"practiceapp/internal/database"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test.
// Requires the TEST_DATABASE_URL environment variable.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)

	return db
}

// cleanupDatabase truncates every application table inside one transaction
func cleanupDatabase(db *sql.DB, logger *observability.Logger) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to begin cleanup transaction", err)
		}
		return
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone && logger != nil {
				logger.Error(ctx, "Failed to rollback cleanup transaction", rbErr)
			}
		}
	}()

	cleanupQueries := []string{
		"TRUNCATE TABLE practice_items CASCADE",
		"TRUNCATE TABLE practice_sessions CASCADE",
		"TRUNCATE TABLE user_progress CASCADE",
		"TRUNCATE TABLE user_achievements CASCADE",
		"TRUNCATE TABLE leaderboard_entries CASCADE",
		"TRUNCATE TABLE user_stats CASCADE",
		"TRUNCATE TABLE game_settings CASCADE",
		"TRUNCATE TABLE questions CASCADE",
		"TRUNCATE TABLE languages CASCADE",
		"TRUNCATE TABLE users CASCADE",
	}
	for _, query := range cleanupQueries {
		if _, err = tx.ExecContext(ctx, query); err != nil {
			if logger != nil {
				logger.Error(ctx, "Cleanup query failed", err, map[string]interface{}{"query": query})
			}
			return
		}
	}

	if err = tx.Commit(); err != nil && logger != nil {
		logger.Error(ctx, "Failed to commit cleanup transaction", err)
	}
}

// CleanupTestDatabase wipes all rows so tests never see each other's data
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()
	cleanupDatabase(db, nil)
}

// integrationTestConfig mirrors the deployed defaults with a small daily bank
// so tests can exhaust and top up the question pool quickly.
func integrationTestConfig() *config.Config {
	return &config.Config{
		Practice: config.PracticeConfig{
			ReferenceTimezone:   "UTC",
			DailyBankSize:       3,
			FullXP:              30,
			FullGems:            50,
			MaxHearts:           5,
			HeartRefillInterval: 4 * time.Hour,
		},
	}
}

// practiceHarness bundles the services a practice integration test needs,
// wired against the shared test database.
type practiceHarness struct {
	cfg       *config.Config
	users     *UserService
	questions *QuestionService
	practice  *PracticeService
}

func newPracticeHarness(db *sql.DB) *practiceHarness {
	cfg := integrationTestConfig()
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	questions := NewQuestionService(db, logger)
	settings := NewSettingsService(db, cfg, logger)
	return &practiceHarness{
		cfg:       cfg,
		users:     NewUserService(db, cfg, logger),
		questions: questions,
		practice:  NewPracticeService(db, cfg, logger, questions, settings),
	}
}

func createTestUser(t *testing.T, h *practiceHarness, username string) *models.User {
	t.Helper()
	user, err := h.users.CreateUser(context.Background(), username, "test-password", username+"@example.com", "es")
	require.NoError(t, err)
	return user
}

func createTestLanguage(t *testing.T, h *practiceHarness, code string) *models.Language {
	t.Helper()
	lang, err := h.questions.CreateLanguage(context.Background(), code, "Test "+code)
	require.NoError(t, err)
	return lang
}

func seedTestQuestions(t *testing.T, h *practiceHarness, languageID, count int) []models.Question {
	t.Helper()
	questions := make([]models.Question, 0, count)
	for i := 0; i < count; i++ {
		q, err := h.questions.CreateQuestion(context.Background(), &models.Question{
			LanguageID:    languageID,
			Type:          models.QuestionTypeTranslation,
			Prompt:        fmt.Sprintf("Translate word %d", i),
			CorrectAnswer: fmt.Sprintf("answer-%d", i),
			Explanation:   "seeded for tests",
		})
		require.NoError(t, err)
		questions = append(questions, *q)
	}
	return questions
}

// sessionQuestionIDs reads a session's assigned question ids in position order
func sessionQuestionIDs(t *testing.T, db *sql.DB, practiceID int) []int {
	t.Helper()
	rows, err := db.QueryContext(context.Background(),
		"SELECT question_id FROM practice_items WHERE practice_id = $1 ORDER BY position", practiceID)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

// answeredFixture is one directly-inserted historical attempt
type answeredFixture struct {
	questionID int
	status     string
	userAnswer string
	isCorrect  bool
	answeredAt time.Time
}

// insertHistoricalSession writes a completed past session with scored items
// through direct SQL, bypassing the scheduler's date checks.
func insertHistoricalSession(t *testing.T, db *sql.DB, userID, languageID int, day time.Time, items []answeredFixture) int {
	t.Helper()
	ctx := context.Background()

	var practiceID int
	err := db.QueryRowContext(ctx,
		`INSERT INTO practice_sessions (user_id, language_id, practice_date, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, languageID, day, models.PracticeStatusCompleted, day.Add(12*time.Hour),
	).Scan(&practiceID)
	require.NoError(t, err)

	for position, item := range items {
		var userAnswer sql.NullString
		var isCorrect sql.NullBool
		if item.status == models.ItemStatusAnswered {
			userAnswer = sql.NullString{String: item.userAnswer, Valid: true}
			isCorrect = sql.NullBool{Bool: item.isCorrect, Valid: true}
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO practice_items (practice_id, question_id, position, status, user_answer, is_correct, answered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			practiceID, item.questionID, position, item.status, userAnswer, isCorrect, item.answeredAt)
		require.NoError(t, err)
	}
	return practiceID
}
