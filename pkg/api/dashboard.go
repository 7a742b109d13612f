package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed dashboard.html
var dashboardHTML []byte

// rootHandler redirects to the built-in dashboard UI.
func (s *Server) rootHandler(c *gin.Context) {
	c.Redirect(http.StatusFound, "/dashboard")
}

// dashboardHandler serves the built-in query UI.
func (s *Server) dashboardHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardHTML)
}
