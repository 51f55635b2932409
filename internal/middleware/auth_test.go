package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestRouter(t *testing.T, seed func(sessions.Session)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))

	if seed != nil {
		router.GET("/seed", func(c *gin.Context) {
			session := sessions.Default(c)
			seed(session)
			require.NoError(t, session.Save())
			c.Status(http.StatusOK)
		})
	}

	protected := router.Group("/", RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetInt(UserIDKey),
			"username": c.GetString(UsernameKey),
		})
	})

	return router
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	router := newAuthTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestRequireAuthAcceptsSession(t *testing.T) {
	router := newAuthTestRouter(t, func(session sessions.Session) {
		session.Set(UserIDKey, 42)
		session.Set(UsernameKey, "learner")
	})

	seedW := httptest.NewRecorder()
	router.ServeHTTP(seedW, httptest.NewRequest(http.MethodGet, "/seed", nil))
	require.Equal(t, http.StatusOK, seedW.Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range seedW.Result().Cookies() {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"username":"learner"`)
}

func TestRequireAuthRejectsMissingUsername(t *testing.T) {
	router := newAuthTestRouter(t, func(session sessions.Session) {
		session.Set(UserIDKey, 42)
	})

	seedW := httptest.NewRecorder()
	router.ServeHTTP(seedW, httptest.NewRequest(http.MethodGet, "/seed", nil))
	require.Equal(t, http.StatusOK, seedW.Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range seedW.Result().Cookies() {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
