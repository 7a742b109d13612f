package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienda-lubbi/mirador/pkg/pipeline"
)

// streamEvent is the raw SSE wire format of /api/insights/stream.
type streamEvent struct {
	Event     string           `json:"event"`
	TraceID   string           `json:"trace_id,omitempty"`
	Step      string           `json:"step,omitempty"`
	Status    string           `json:"status,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
}

// streamInsightsHandler handles POST /api/insights/stream: the pipeline's
// progress events as plain SSE, ending with a complete (or error) event
// that carries the final result.
func (s *Server) streamInsightsHandler(c *gin.Context) {
	var req InsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := newSSEWriter(c, nil)

	for ev := range s.pipe.RunStreaming(c.Request.Context(), req.toQueryRequest()) {
		out := streamEvent{
			TraceID:   ev.TraceID,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		switch ev.Kind {
		case pipeline.EventStart:
			out.Event = "start"
		case pipeline.EventStep:
			out.Event = "progress"
			out.Step = ev.Step.Node
			out.Status = ev.Step.Status
			out.Message = ev.Message
		case pipeline.EventComplete:
			if ev.Result != nil && ev.Result.Error != nil {
				out.Event = "error"
				out.Message = ev.Result.Error.UserMessage()
			} else {
				out.Event = "complete"
			}
			out.Result = ev.Result
		}
		if err := w.sendJSON(out); err != nil {
			s.logger.Warn("client disconnected during stream", "error", err)
			return
		}
	}
}
