// Package api exposes the HTTP surface: the synchronous insights endpoint,
// the SSE streaming endpoints (raw events plus the AI SDK v5 chat
// protocol), and the operational endpoints for health and cache control.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/config"
	"github.com/tienda-lubbi/mirador/pkg/memory"
	"github.com/tienda-lubbi/mirador/pkg/pipeline"
)

// Server is the HTTP server wiring the pipeline to its endpoints.
type Server struct {
	cfg    *config.Config
	pipe   *pipeline.Pipeline
	db     *sql.DB
	caches *cache.Set
	memory memory.Store
	logger *slog.Logger

	httpServer *http.Server
}

// NewServer builds the server. memory may be nil when chat history is
// disabled; db may be nil in demo mode.
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, db *sql.DB, caches *cache.Set, store memory.Store, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		pipe:   pipe,
		db:     db,
		caches: caches,
		memory: store,
		logger: logger.With("component", "api"),
	}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(s.corsMiddleware())

	r.GET("/", s.rootHandler)
	r.GET("/dashboard", s.dashboardHandler)
	r.GET("/health", s.healthHandler)
	r.GET("/api/health", s.healthHandler)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/queries", s.listQueriesHandler)
		apiGroup.POST("/cache/invalidate", s.invalidateCacheHandler)
		apiGroup.POST("/insights/run", s.runInsightsHandler)
		apiGroup.POST("/insights/stream", s.streamInsightsHandler)
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/chat/stream", s.chatStreamHandler)
	}

	return r
}

// Start runs the HTTP server on addr. Blocks until shutdown or failure.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
