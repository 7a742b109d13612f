package pipeline

import (
	"github.com/tienda-lubbi/mirador/pkg/cache"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// EventKind discriminates streaming events.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventStep     EventKind = "step"
	EventComplete EventKind = "complete"
)

// Event is one streaming update emitted while a question runs. Step events
// carry the node transition plus a user-facing progress message; the
// complete event carries the final result.
type Event struct {
	Kind    EventKind         `json:"kind"`
	TraceID string            `json:"trace_id"`
	Message string            `json:"message,omitempty"`
	Step    *models.AgentStep `json:"step,omitempty"`
	Result  *Result           `json:"result,omitempty"`
}

// nodeReflection is the retry node; it has no cache so it lives here
// rather than with the cached node names.
const nodeReflection = "Reflection"

var nodeMessages = map[string]string{
	cache.NodeRouter:         "Analizando tu consulta...",
	cache.NodeDataAgent:      "Consultando los datos...",
	nodeReflection:           "Reintentando la consulta...",
	cache.NodePresentation:   "Armando el dashboard...",
	cache.NodeDirectResponse: "Preparando la respuesta...",
}

// NodeMessage returns the Spanish progress message for a pipeline node.
func NodeMessage(node string) string {
	if msg, ok := nodeMessages[node]; ok {
		return msg
	}
	return "Procesando..."
}
