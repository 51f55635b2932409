package services

import (
	"context"
	"database/sql"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	contextutils "practiceapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LeaderboardServiceInterface defines the interface for weekly leaderboards
type LeaderboardServiceInterface interface {
	CreditXP(ctx context.Context, userID, xp int, at time.Time) error
	GetTopEntries(ctx context.Context, period string, limit int) ([]models.LeaderboardEntry, error)
	CurrentPeriod(at time.Time) string
}

// LeaderboardService maintains additive per-week XP standings. Credits are
// keyed by (user, period), so replaying a credit after a retry only risks
// overcounting, never losing a row.
type LeaderboardService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

// NewLeaderboardService creates a new LeaderboardService instance
func NewLeaderboardService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *LeaderboardService {
	return &LeaderboardService{db: db, cfg: cfg, logger: logger}
}

// CurrentPeriod returns the ISO week period key for the given instant
func (s *LeaderboardService) CurrentPeriod(at time.Time) string {
	return contextutils.WeekPeriodKey(at, s.cfg.ReferenceLocation())
}

// CreditXP adds xp to the user's standing for the week containing at
func (s *LeaderboardService) CreditXP(ctx context.Context, userID, xp int, at time.Time) (err error) {
	period := s.CurrentPeriod(at)
	ctx, span := otel.Tracer("leaderboard-service").Start(ctx, "CreditXP",
		trace.WithAttributes(
			observability.AttributeUserID(userID),
			attribute.String("leaderboard.period", period),
			attribute.Int("leaderboard.xp", xp),
		),
	)
	defer observability.FinishSpan(span, &err)

	if xp <= 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (user_id, period, xp)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, period)
		 DO UPDATE SET xp = leaderboard_entries.xp + EXCLUDED.xp, updated_at = NOW()`,
		userID, period, xp)
	if err != nil {
		return contextutils.WrapError(err, "failed to credit leaderboard xp")
	}
	return nil
}

// GetTopEntries returns the period's standings ordered by XP descending
func (s *LeaderboardService) GetTopEntries(ctx context.Context, period string, limit int) (result0 []models.LeaderboardEntry, err error) {
	ctx, span := otel.Tracer("leaderboard-service").Start(ctx, "GetTopEntries",
		trace.WithAttributes(
			attribute.String("leaderboard.period", period),
			observability.AttributeLimit(limit),
		),
	)
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT le.id, le.user_id, le.period, le.xp, u.username, le.updated_at
		 FROM leaderboard_entries le
		 JOIN users u ON u.id = le.user_id
		 WHERE le.period = $1
		 ORDER BY le.xp DESC, u.username
		 LIMIT $2`, period, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query leaderboard")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Period, &entry.XP, &entry.Username, &entry.UpdatedAt)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan leaderboard entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate leaderboard entries")
	}

	span.SetAttributes(observability.AttributeCount(len(entries)))
	return entries, nil
}
