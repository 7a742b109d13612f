package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
)

// runInsightsHandler handles POST /api/insights/run: the synchronous path
// through the full pipeline. Pipeline failures come back as success=false
// in the body, not as HTTP errors; only malformed requests get a 4xx.
func (s *Server) runInsightsHandler(c *gin.Context) {
	var req InsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.pipe.Run(c.Request.Context(), req.toQueryRequest())
	c.JSON(http.StatusOK, result)
}

// listQueriesHandler handles GET /api/queries: the allowlist catalog.
func (s *Server) listQueriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queries": allowlist.Available()})
}

// invalidateCacheHandler handles POST /api/cache/invalidate.
func (s *Server) invalidateCacheHandler(c *gin.Context) {
	s.caches.InvalidateAll()
	s.logger.Info("all caches invalidated")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "All caches invalidated"})
}
