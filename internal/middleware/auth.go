// Package middleware provides session authentication and panic recovery
// middleware for the Gin router.
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys under which the authenticated identity is stored.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// sessionIdentity reads the user ID and username out of the session.
// Session stores that round-trip through JSON decode numbers as float64.
func sessionIdentity(session sessions.Session) (int, string, bool) {
	var userID int
	switch v := session.Get(UserIDKey).(type) {
	case int:
		userID = v
	case float64:
		userID = int(v)
	default:
		return 0, "", false
	}

	username, ok := session.Get(UsernameKey).(string)
	if !ok || username == "" {
		return 0, "", false
	}
	return userID, username, true
}

// RequireAuth rejects requests without an authenticated session and exposes
// the identity to handlers via the gin context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := sessionIdentity(sessions.Default(c))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)
		c.Next()
	}
}
