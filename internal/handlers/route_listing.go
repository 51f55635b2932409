package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"practiceapp/internal/observability"

	"github.com/gin-gonic/gin"
)

// RouteInfo describes one registered route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves a generated index of the API surface at the root
// path, as HTML for browsers and JSON for tooling.
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{serviceName: serviceName}
}

// CollectRoutes snapshots the engine's registered routes. Call after all
// routes are mounted; gin's route table is static from then on.
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = h.routes[:0]

	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			HandlerName: route.Handler,
		})
	}

	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path != h.routes[j].Path {
			return h.routes[i].Path < h.routes[j].Path
		}
		return h.routes[i].Method < h.routes[j].Method
	})
}

// GetRouteListingPage shows all available routes as HTML
func (h *RouteListingHandler) GetRouteListingPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_page")
	defer observability.FinishSpan(span, nil)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.String(http.StatusOK, h.renderHTML())
}

// GetRouteListingJSON returns the route listing as JSON
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)
	c.JSON(http.StatusOK, h.routes)
}

// groupKey buckets a path by its first two segments ("/v1/practice/:id" ->
// "/v1/practice") so related endpoints render together.
func groupKey(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	switch len(parts) {
	case 0:
		return "/"
	case 1:
		return "/" + parts[0]
	default:
		return "/" + parts[0] + "/" + parts[1]
	}
}

// renderHTML builds the route index page
func (h *RouteListingHandler) renderHTML() string {
	groups := make(map[string][]RouteInfo)
	var order []string
	for _, route := range h.routes {
		key := groupKey(route.Path)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], route)
	}
	sort.Strings(order)

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>` + h.serviceName + ` API</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 56rem; color: #1a1a2e; }
  h1 { border-bottom: 1px solid #ccc; padding-bottom: .4rem; }
  h2 { margin-top: 1.6rem; font-size: 1rem; color: #444; font-family: monospace; }
  ul { list-style: none; padding-left: 0; }
  li { padding: .25rem 0; font-family: monospace; font-size: .9rem; }
  .m { display: inline-block; width: 4.5rem; font-weight: 700; }
  .m-GET { color: #1b7a43; }
  .m-POST { color: #1451a0; }
  .m-PUT { color: #9a6700; }
  .m-DELETE { color: #a12622; }
  a { color: inherit; }
  footer { margin-top: 2rem; color: #777; font-size: .8rem; }
</style>
</head>
<body>
<h1>` + h.serviceName + ` API</h1>
`)

	for _, key := range order {
		b.WriteString("<h2>" + key + "</h2>\n<ul>\n")
		for _, route := range groups[key] {
			path := route.Path
			if route.Method == http.MethodGet && !strings.Contains(path, ":") {
				path = fmt.Sprintf(`<a href="%s">%s</a>`, route.Path, route.Path)
			}
			b.WriteString(fmt.Sprintf(`<li><span class="m m-%s">%s</span>%s</li>`+"\n",
				route.Method, route.Method, path))
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString(fmt.Sprintf(`<footer>%d routes · generated %s · <a href="/?json=true">JSON</a></footer>
</body>
</html>`, len(h.routes), time.Now().Format("2006-01-02 15:04:05")))

	return b.String()
}
