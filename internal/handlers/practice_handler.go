package handlers

import (
	"net/http"
	"strconv"
	"time"

	"practiceapp/internal/config"
	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// PracticeHandler handles practice scheduling, submission and review requests
type PracticeHandler struct {
	practiceService    services.PracticeServiceInterface
	userService        services.UserServiceInterface
	leaderboardService services.LeaderboardServiceInterface
	achievementService services.AchievementServiceInterface
	config             *config.Config
	logger             *observability.Logger
}

// NewPracticeHandler creates a new PracticeHandler instance
func NewPracticeHandler(
	practiceService services.PracticeServiceInterface,
	userService services.UserServiceInterface,
	leaderboardService services.LeaderboardServiceInterface,
	achievementService services.AchievementServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *PracticeHandler {
	return &PracticeHandler{
		practiceService:    practiceService,
		userService:        userService,
		leaderboardService: leaderboardService,
		achievementService: achievementService,
		config:             cfg,
		logger:             logger,
	}
}

// GetWeek returns the authenticated user's practice week projection.
// ?full=true projects all seven days; the default view runs today
// through Sunday.
func (h *PracticeHandler) GetWeek(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_week")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	full := c.Query("full") == "true"
	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Bool("week.full", full),
	)

	week, err := h.practiceService.GetWeek(ctx, userID, full)
	if err != nil {
		h.logger.Error(ctx, "Failed to project week", err, map[string]interface{}{"user_id": userID})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, week)
}

// GetPractice returns a single practice session with its questions
func (h *PracticeHandler) GetPractice(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_practice")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	practiceID, ok := parsePracticeID(c)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Int("practice.id", practiceID),
	)

	session, err := h.practiceService.GetPracticeByID(ctx, userID, practiceID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SubmitPractice scores the session's submitted answers and returns the result
func (h *PracticeHandler) SubmitPractice(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_practice")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	practiceID, ok := parsePracticeID(c)
	if !ok {
		return
	}

	var req models.SubmitPracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Int("practice.id", practiceID),
		attribute.Int("answers.count", len(req.Answers)),
	)

	result, err := h.practiceService.SubmitPractice(ctx, userID, practiceID, req.Answers)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReview returns the user's review set of skipped and missed questions
func (h *PracticeHandler) GetReview(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_review")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	items, err := h.practiceService.GetReviewSet(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GetStats returns the user's aggregate counters with hearts regenerated
func (h *PracticeHandler) GetStats(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_stats")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	stats, err := h.userService.GetUserStats(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetLeaderboard returns the current week's standings
func (h *PracticeHandler) GetLeaderboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_leaderboard")
	defer observability.FinishSpan(span, nil)

	if _, ok := GetUserIDFromSession(c); !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	period := c.Query("period")
	if period == "" {
		period = h.leaderboardService.CurrentPeriod(time.Now())
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			HandleValidationError(c, "limit", raw, "must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}
	span.SetAttributes(attribute.String("leaderboard.period", period))

	entries, err := h.leaderboardService.GetTopEntries(ctx, period, limit)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":  period,
		"entries": entries,
	})
}

// GetAchievements returns the user's unlocked achievements
func (h *PracticeHandler) GetAchievements(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_achievements")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	achievements, err := h.achievementService.ListAchievements(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

// parsePracticeID extracts and validates the :id path parameter, writing
// the validation response itself on failure.
func parsePracticeID(c *gin.Context) (int, bool) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		HandleValidationError(c, "practice id", raw, "must be a positive integer")
		return 0, false
	}
	return id, true
}
