package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// localOrigins are always allowed for frontend development.
var localOrigins = map[string]bool{
	"http://localhost:3000": true,
	"http://localhost:3001": true,
	"http://localhost:3002": true,
	"http://localhost:3003": true,
}

// corsMiddleware allows the local dev ports, Vercel preview deploys, and
// the configured frontend URL.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	frontendURL := strings.TrimSuffix(s.cfg.FrontendURL, "/")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin, frontendURL) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) originAllowed(origin, frontendURL string) bool {
	if localOrigins[origin] {
		return true
	}
	if strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, ".vercel.app") {
		return true
	}
	return frontendURL != "" && origin == frontendURL
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// SSE requests hold the connection open; their duration is not a
		// latency signal, so they log at debug.
		logFn := s.logger.Info
		if strings.Contains(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			logFn = s.logger.Debug
		}
		logFn("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0)
	}
}
