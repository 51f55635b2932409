package handlers

import (
	"net/http"

	"practiceapp/internal/config"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// SettingsHandler handles language listing and user preference requests
type SettingsHandler struct {
	questionService services.QuestionServiceInterface
	settingsService services.SettingsServiceInterface
	userService     services.UserServiceInterface
	config          *config.Config
	logger          *observability.Logger
}

// NewSettingsHandler creates a new SettingsHandler instance
func NewSettingsHandler(
	questionService services.QuestionServiceInterface,
	settingsService services.SettingsServiceInterface,
	userService services.UserServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *SettingsHandler {
	return &SettingsHandler{
		questionService: questionService,
		settingsService: settingsService,
		userService:     userService,
		config:          cfg,
		logger:          logger,
	}
}

// GetLanguages returns the languages available for practice
func (h *SettingsHandler) GetLanguages(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_languages")
	defer observability.FinishSpan(span, nil)

	languages, err := h.questionService.ListLanguages(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": languages})
}

// GetRewards returns the active reward tuning so clients can render
// full-session XP and gem values.
func (h *SettingsHandler) GetRewards(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_rewards")
	defer observability.FinishSpan(span, nil)

	rewards, err := h.settingsService.GetRewardSettings(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, rewards)
}

type updateLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// UpdateLearningLanguage switches the user's practice language
func (h *SettingsHandler) UpdateLearningLanguage(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_learning_language")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req updateLanguageRequest
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
		attribute.String("language.code", req.Language),
	)

	// Reject codes the question bank does not know about.
	if _, err := h.questionService.ResolveLanguage(ctx, req.Language); err != nil {
		HandleAppError(c, err)
		return
	}

	if err := h.userService.UpdateLearningLanguage(ctx, userID, req.Language); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "language": req.Language})
}
