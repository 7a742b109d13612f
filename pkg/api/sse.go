package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// sseWriter writes server-sent events on a gin response. Every write is
// flushed immediately so proxies and clients see events as they happen.
type sseWriter struct {
	c       *gin.Context
	flusher http.Flusher
}

// newSSEWriter sets the SSE response headers and returns the writer.
// extraHeaders lets the chat endpoint add the AI SDK protocol marker.
func newSSEWriter(c *gin.Context, extraHeaders map[string]string) *sseWriter {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering
	for k, v := range extraHeaders {
		c.Header(k, v)
	}
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	return &sseWriter{c: c, flusher: flusher}
}

// sendJSON marshals v and writes it as one `data:` event.
func (w *sseWriter) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode SSE event: %w", err)
	}
	return w.sendRaw(string(data))
}

// sendRaw writes a preformatted data line, e.g. the [DONE] marker.
func (w *sseWriter) sendRaw(data string) error {
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
