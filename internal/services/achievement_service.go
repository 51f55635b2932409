package services

import (
	"context"
	"database/sql"
	"time"

	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AchievementServiceInterface defines the interface for achievement awards
type AchievementServiceInterface interface {
	Reevaluate(ctx context.Context, userID int) error
	ListAchievements(ctx context.Context, userID int) ([]models.UserAchievement, error)
}

// achievementStats is the snapshot conditions are evaluated against
type achievementStats struct {
	XP             int
	Streak         int
	CompletedCount int
	PerfectCount   int
	AnsweredCount  int
}

// achievementCondition pairs an award code with its qualification check
type achievementCondition struct {
	code  string
	check func(achievementStats) bool
}

// achievementConditions is evaluated in order on every reevaluation. Awards
// are insert-only, so a condition that later stops holding (streak broken)
// never revokes the achievement.
var achievementConditions = []achievementCondition{
	{models.AchievementFirstPractice, func(s achievementStats) bool { return s.CompletedCount >= 1 }},
	{models.AchievementPerfectDay, func(s achievementStats) bool { return s.PerfectCount >= 1 }},
	{models.AchievementWeekStreak, func(s achievementStats) bool { return s.Streak >= 7 }},
	{models.AchievementHundredXP, func(s achievementStats) bool { return s.XP >= 100 }},
	{models.AchievementHundredAnswers, func(s achievementStats) bool { return s.AnsweredCount >= 100 }},
}

// AchievementService awards one-time achievements from practice activity
type AchievementService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAchievementService creates a new AchievementService instance
func NewAchievementService(db *sql.DB, logger *observability.Logger) *AchievementService {
	return &AchievementService{db: db, logger: logger}
}

// Reevaluate recomputes the user's achievement conditions and awards any
// newly qualified ones. Safe to call repeatedly: awards are deduplicated on
// (user, code).
func (s *AchievementService) Reevaluate(ctx context.Context, userID int) (err error) {
	ctx, span := otel.Tracer("achievement-service").Start(ctx, "Reevaluate",
		trace.WithAttributes(observability.AttributeUserID(userID)),
	)
	defer observability.FinishSpan(span, &err)

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return err
	}

	awarded := 0
	for _, condition := range achievementConditions {
		if !condition.check(stats) {
			continue
		}
		inserted, err := s.award(ctx, userID, condition.code)
		if err != nil {
			return err
		}
		if inserted {
			awarded++
			s.logger.Info(ctx, "Achievement awarded", map[string]interface{}{
				"user_id": userID,
				"code":    condition.code,
			})
		}
	}

	span.SetAttributes(attribute.Int("achievements.awarded", awarded))
	return nil
}

// loadStats gathers the counters the conditions need in three queries
func (s *AchievementService) loadStats(ctx context.Context, userID int) (achievementStats, error) {
	var stats achievementStats

	err := s.db.QueryRowContext(ctx,
		"SELECT xp, streak FROM user_stats WHERE user_id = $1", userID,
	).Scan(&stats.XP, &stats.Streak)
	if err != nil && err != sql.ErrNoRows {
		return stats, contextutils.WrapError(err, "failed to load user stats")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = $2),
		        COUNT(*) FILTER (WHERE status = $2 AND xp_earned > 0 AND NOT EXISTS (
		            SELECT 1 FROM practice_items pi
		            WHERE pi.practice_id = practice_sessions.id
		              AND (pi.status <> 'answered' OR pi.is_correct = FALSE)
		        ))
		 FROM practice_sessions
		 WHERE user_id = $1`,
		userID, models.PracticeStatusCompleted,
	).Scan(&stats.CompletedCount, &stats.PerfectCount)
	if err != nil {
		return stats, contextutils.WrapError(err, "failed to load session counts")
	}

	// Lifetime answer volume comes from the append-only answer log, which
	// counts every scored attempt including re-attempts of a question.
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_progress WHERE user_id = $1", userID,
	).Scan(&stats.AnsweredCount)
	if err != nil {
		return stats, contextutils.WrapError(err, "failed to load answer count")
	}

	return stats, nil
}

// award inserts the achievement, reporting whether this call created it
func (s *AchievementService) award(ctx context.Context, userID int, code string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO user_achievements (user_id, code, unlocked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, code) DO NOTHING`,
		userID, code, time.Now())
	if err != nil {
		return false, contextutils.WrapError(err, "failed to award achievement")
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, contextutils.WrapError(err, "failed to read award result")
	}
	return inserted > 0, nil
}

// ListAchievements returns the user's awards, newest first
func (s *AchievementService) ListAchievements(ctx context.Context, userID int) (result0 []models.UserAchievement, err error) {
	ctx, span := otel.Tracer("achievement-service").Start(ctx, "ListAchievements",
		trace.WithAttributes(observability.AttributeUserID(userID)),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, code, unlocked_at
		 FROM user_achievements
		 WHERE user_id = $1
		 ORDER BY unlocked_at DESC`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query achievements")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var achievements []models.UserAchievement
	for rows.Next() {
		var achievement models.UserAchievement
		err := rows.Scan(&achievement.ID, &achievement.UserID, &achievement.Code, &achievement.UnlockedAt)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan achievement")
		}
		achievements = append(achievements, achievement)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate achievements")
	}
	return achievements, nil
}
