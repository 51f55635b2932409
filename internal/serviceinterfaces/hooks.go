// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"
	"time"
)

// LeaderboardCreditor credits XP toward a user's weekly standing. Invoked
// after a practice submission commits; implementations must tolerate
// duplicate delivery.
type LeaderboardCreditor interface {
	CreditXP(ctx context.Context, userID, xp int, at time.Time) error
}

// AchievementEvaluator re-checks a user's achievements after state changes
// such as a completed practice session.
type AchievementEvaluator interface {
	Reevaluate(ctx context.Context, userID int) error
}
