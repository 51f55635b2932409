package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func practiceTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.GET("/health", func(_ *gin.Context) {})
	v1 := router.Group("/v1")
	{
		v1.GET("/practice/week", func(_ *gin.Context) {})
		v1.GET("/practice/:id", func(_ *gin.Context) {})
		v1.POST("/practice/:id/submit", func(_ *gin.Context) {})
		v1.GET("/practice/review", func(_ *gin.Context) {})
		v1.POST("/auth/login", func(_ *gin.Context) {})
	}
	return router
}

func TestCollectRoutes(t *testing.T) {
	handler := NewRouteListingHandler("Practice")
	handler.CollectRoutes(practiceTestRouter())

	require.Len(t, handler.routes, 6)

	found := make(map[string]bool, len(handler.routes))
	for _, route := range handler.routes {
		found[route.Method+" "+route.Path] = true
	}
	assert.True(t, found["GET /health"])
	assert.True(t, found["GET /v1/practice/week"])
	assert.True(t, found["GET /v1/practice/:id"])
	assert.True(t, found["POST /v1/practice/:id/submit"])
	assert.True(t, found["GET /v1/practice/review"])
	assert.True(t, found["POST /v1/auth/login"])

	paths := make([]string, len(handler.routes))
	for i, route := range handler.routes {
		paths[i] = route.Path
	}
	assert.True(t, sort.StringsAreSorted(paths), "routes should be sorted by path")
}

func TestCollectRoutesSkipsDebugAndResets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/debug/pprof", func(_ *gin.Context) {})
	router.GET("/v1/version", func(_ *gin.Context) {})

	handler := NewRouteListingHandler("Practice")
	handler.CollectRoutes(router)
	require.Len(t, handler.routes, 1)
	assert.Equal(t, "/v1/version", handler.routes[0].Path)

	// A second collection replaces, not appends.
	handler.CollectRoutes(router)
	assert.Len(t, handler.routes, 1)
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "/v1/practice", groupKey("/v1/practice/:id/submit"))
	assert.Equal(t, "/v1/practice", groupKey("/v1/practice"))
	assert.Equal(t, "/health", groupKey("/health"))
	assert.Equal(t, "/", groupKey("/"))
}

func TestGetRouteListingJSON(t *testing.T) {
	router := practiceTestRouter()
	handler := NewRouteListingHandler("Practice")
	handler.CollectRoutes(router)
	router.GET("/routes", handler.GetRouteListingJSON)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/routes", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var routes []RouteInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
	require.Len(t, routes, 6)
	for _, route := range routes {
		assert.NotEmpty(t, route.Method)
		assert.True(t, strings.HasPrefix(route.Path, "/"))
	}
}

func TestGetRouteListingPage(t *testing.T) {
	router := practiceTestRouter()
	handler := NewRouteListingHandler("Practice")
	handler.CollectRoutes(router)
	router.GET("/routes", handler.GetRouteListingPage)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/routes", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "Practice API")
	assert.Contains(t, body, "/v1/practice/week")
	// Parameterized paths are listed but not linked.
	assert.Contains(t, body, "/v1/practice/:id")
	assert.NotContains(t, body, `href="/v1/practice/:id"`)
}

func TestRouteListingEmptyRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRouteListingHandler("Practice")
	handler.CollectRoutes(gin.New())
	assert.Empty(t, handler.routes)
	assert.Contains(t, handler.renderHTML(), "0 routes")
}
