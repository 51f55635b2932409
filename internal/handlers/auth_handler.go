package handlers

import (
	"net/http"
	"strings"

	"practiceapp/internal/config"
	"practiceapp/internal/middleware"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		config:      cfg,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	Username         string `json:"username" binding:"required,min=3,max=50"`
	Password         string `json:"password" binding:"required,min=8"`
	Email            string `json:"email" binding:"omitempty,email"`
	LearningLanguage string `json:"learning_language" binding:"required"`
}

// Signup registers a new account and opens a session for it
func (h *AuthHandler) Signup(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "signup")
	defer observability.FinishSpan(span, nil)

	var req signupRequest
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

	req.Username = strings.TrimSpace(req.Username)
	span.SetAttributes(attribute.String("auth.username", req.Username))

	user, err := h.userService.CreateUser(ctx, req.Username, req.Password, req.Email, req.LearningLanguage)
	if err != nil {
		h.logger.Warn(ctx, "Signup failed", map[string]interface{}{"username": req.Username, "error": err.Error()})
		HandleAppError(c, err)
		return
	}

	if err := h.openSession(c, user.ID, user.Username); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    user,
	})
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req loginRequest
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
		attribute.String("auth.username", req.Username),
		attribute.Bool("auth.password_provided", req.Password != ""),
	)

	user, err := h.userService.AuthenticateUser(ctx, req.Username, req.Password)
	if err != nil {
		h.logger.Warn(ctx, "Authentication failed", map[string]interface{}{"username": req.Username})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))

	if err := h.openSession(c, user.ID, user.Username); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) openSession(c *gin.Context, userID int, username string) error {
	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, userID)
	session.Set(middleware.UsernameKey, username)
	if err := session.Save(); err != nil {
		return contextutils.WrapError(err, "failed to create session")
	}
	return nil
}

// Logout handles user logout requests
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	if userID := session.Get(middleware.UserIDKey); userID != nil {
		span.SetAttributes(attribute.Int("user.id", userID.(int)))
	}

	session.Clear()
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status returns the current authentication status
func (h *AuthHandler) Status(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "status")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		span.SetAttributes(attribute.Bool("auth.authenticated", false))
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}

	span.SetAttributes(
		attribute.Bool("auth.authenticated", true),
		attribute.Int("user.id", userID),
	)

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		// Stale session for a deleted user reads as anonymous.
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			session := sessions.Default(c)
			session.Clear()
			if saveErr := session.Save(); saveErr != nil {
				h.logger.Warn(ctx, "Failed to clear stale session", map[string]interface{}{"error": saveErr.Error()})
			}
			c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
			return
		}
		HandleAppError(c, err)
		return
	}

	if err := h.userService.UpdateLastActive(ctx, user.ID); err != nil {
		h.logger.Warn(ctx, "Failed to update last active", map[string]interface{}{"user_id": user.ID, "error": err.Error()})
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          user,
	})
}
