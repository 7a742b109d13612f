package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienda-lubbi/mirador/pkg/dates"
	"github.com/tienda-lubbi/mirador/pkg/models"
	"github.com/tienda-lubbi/mirador/pkg/pipeline"
)

// AI SDK v5 data stream protocol events. The frontend's useChat hook
// consumes these directly:
//
//	data: {"type":"start","messageId":"msg-xxx"}
//	data: {"type":"text-start","textId":"text-xxx"}
//	data: {"type":"text-delta","textId":"text-xxx","delta":"..."}
//	data: {"type":"text-end","textId":"text-xxx"}
//	data: {"type":"data-agent_step","data":{...}}
//	data: {"type":"data-dashboard","data":{...}}
//	data: {"type":"finish","finishReason":"complete"}
//	data: [DONE]

type sdkEvent struct {
	Type         string `json:"type"`
	MessageID    string `json:"messageId,omitempty"`
	TextID       string `json:"textId,omitempty"`
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

type sdkDataEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type agentStepData struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	TS      string `json:"ts"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// chatStreamHandler handles POST /api/v1/chat/stream: the AI SDK v5
// compatible chat endpoint with conversation persistence.
func (s *Server) chatStreamHandler(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := pipeline.NewTraceID()
	messageID := "msg-" + traceID
	textID := "text-" + traceID
	threadID := req.ConversationID
	if threadID == "" {
		threadID = "thread-" + traceID
	}

	// The user turn persists before streaming starts so a dropped
	// connection never loses the question.
	s.persistTurn(c.Request.Context(), threadID, req.UserID, models.ConversationTurn{
		Role:      "user",
		Content:   req.Question,
		Metadata:  map[string]any{"trace_id": traceID},
		CreatedAt: time.Now().UTC(),
	})

	w := newSSEWriter(c, map[string]string{"x-vercel-ai-ui-message-stream": "v1"})
	send := func(v any) bool {
		if err := w.sendJSON(v); err != nil {
			s.logger.Warn("chat client disconnected", "trace_id", traceID, "error", err)
			return false
		}
		return true
	}

	if !send(sdkEvent{Type: "start", MessageID: messageID}) {
		return
	}
	send(sdkDataEvent{Type: "data-trace", Data: gin.H{
		"trace_id":   traceID,
		"request_id": threadID,
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	}})
	send(sdkEvent{Type: "text-start", TextID: textID})

	// Date extraction surfaces early so the UI can show the detected
	// period while the pipeline still runs.
	queryReq := models.QueryRequest{
		Question:       req.Question,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
	}
	var dateFrom, dateTo string
	if r, ok := dates.ExtractRange(req.Question); ok {
		dateFrom, dateTo = r.From, r.To
	}
	send(sdkDataEvent{Type: "data-agent_step", Data: agentStepData{
		Step:    "date_extraction",
		Status:  "progress",
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Message: fmt.Sprintf("Periodo detectado: %s", dates.FormatContext(dateFrom, dateTo)),
		Detail:  gin.H{"date_from": dateFrom, "date_to": dateTo},
	}})

	for ev := range s.pipe.RunStreamingWithTrace(c.Request.Context(), queryReq, traceID) {
		switch ev.Kind {
		case pipeline.EventStep:
			if !send(sdkDataEvent{Type: "data-agent_step", Data: agentStepData{
				Step:    ev.Step.Node,
				Status:  ev.Step.Status,
				TS:      ev.Step.Timestamp.Format(time.RFC3339Nano),
				Message: ev.Message,
			}}) {
				return
			}
		case pipeline.EventComplete:
			s.streamChatResult(c.Request.Context(), w, ev.Result, textID, threadID, req.UserID, traceID)
		}
	}

	send(sdkEvent{Type: "text-end", TextID: textID})
	send(sdkEvent{Type: "finish", FinishReason: "complete", MessageID: messageID})
	_ = w.sendRaw("[DONE]")
}

// streamChatResult emits the final result parts: dashboard, narrative
// text, payload, and meta. The assistant turn persists once the
// conclusion is known.
func (s *Server) streamChatResult(ctx context.Context, w *sseWriter, result *pipeline.Result, textID, threadID, userID, traceID string) {
	if result == nil {
		return
	}

	if result.Error != nil {
		errText := result.Error.UserMessage()
		_ = w.sendJSON(sdkEvent{Type: "text-delta", TextID: textID, Delta: errText})
		_ = w.sendJSON(sdkDataEvent{Type: "data-agent_step", Data: agentStepData{
			Step:    "error",
			Status:  "error",
			TS:      time.Now().UTC().Format(time.RFC3339Nano),
			Message: errText,
		}})
		return
	}

	if result.Dashboard != nil {
		_ = w.sendJSON(sdkDataEvent{Type: "data-dashboard", Data: result.Dashboard})

		if conclusion := result.Dashboard.Conclusion; conclusion != "" {
			_ = w.sendJSON(sdkEvent{Type: "text-delta", TextID: textID, Delta: conclusion})
			s.persistTurn(ctx, threadID, userID, models.ConversationTurn{
				Role:    "assistant",
				Content: conclusion,
				Metadata: map[string]any{
					"trace_id":        traceID,
					"dashboard_title": result.Dashboard.Title,
				},
				CreatedAt: time.Now().UTC(),
			})
		}
	}

	if result.Payload != nil {
		_ = w.sendJSON(sdkDataEvent{Type: "data-payload", Data: result.Payload})
	}
	if result.Meta != nil {
		_ = w.sendJSON(sdkDataEvent{Type: "data-meta", Data: result.Meta})
	}
}

func (s *Server) persistTurn(ctx context.Context, threadID, userID string, turn models.ConversationTurn) {
	if s.memory == nil {
		return
	}
	if err := s.memory.AppendMessage(ctx, threadID, userID, turn); err != nil {
		s.logger.Warn("failed to persist chat message", "thread_id", threadID, "role", turn.Role, "error", err)
	}
}
