package handlers

import (
	"practiceapp/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetUserIDFromSession reads the authenticated user's ID out of the
// cookie session. The second return is false for anonymous requests
// or a corrupted session value.
func GetUserIDFromSession(c *gin.Context) (int, bool) {
	raw := sessions.Default(c).Get(middleware.UserIDKey)
	id, ok := raw.(int)
	return id, ok && id > 0
}
