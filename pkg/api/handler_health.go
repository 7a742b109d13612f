package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/database"
	"github.com/tienda-lubbi/mirador/pkg/version"
)

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Build    string                 `json:"build"`
	Database string                 `json:"database"`
	Pool     *database.HealthStatus `json:"pool,omitempty"`
	Cache    map[string]cache.Stats `json:"cache"`
}

// healthHandler handles GET /health and GET /api/health. The database
// check is advisory: a disconnected analytics DB degrades the status but
// the server keeps answering (demo mode and cached paths still work).
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "connected"
	var pool *database.HealthStatus
	if s.db == nil {
		dbStatus = "demo"
	} else if health, err := database.Health(reqCtx, s.db); err != nil {
		status = "degraded"
		dbStatus = "disconnected"
	} else {
		pool = health
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:   status,
		Version:  version.API,
		Build:    version.GitCommit,
		Database: dbStatus,
		Pool:     pool,
		Cache:    s.caches.AllStats(),
	})
}
