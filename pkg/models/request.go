package models

import "time"

// QueryRequest is a natural-language question plus optional explicit bounds.
// Explicit dates override anything the date parser extracts.
type QueryRequest struct {
	Question string         `json:"question" binding:"required"`
	DateFrom string         `json:"date_from,omitempty"` // ISO date, inclusive
	DateTo   string         `json:"date_to,omitempty"`   // ISO date, exclusive
	Filters  map[string]any `json:"filters,omitempty"`

	// ConversationID threads chat history; empty for one-shot requests.
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// PlannedQuery is one allowlist query chosen by the planner with its bound
// parameters.
type PlannedQuery struct {
	QueryID string         `json:"query_id"`
	Params  map[string]any `json:"params"`
}

// QueryPlan is the planner's output for one request.
type QueryPlan struct {
	Queries     []PlannedQuery `json:"queries"`
	DateFrom    string         `json:"date_from,omitempty"`
	DateTo      string         `json:"date_to,omitempty"`
	DateContext string         `json:"date_context,omitempty"`
	Source      string         `json:"source"` // "heuristic" | "llm"
}

// AgentStep records one pipeline node transition for tracing and streaming.
type AgentStep struct {
	Node      string    `json:"node"`
	Status    string    `json:"status"` // "running" | "done" | "error" | "cached"
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationTurn is one persisted chat message.
type ConversationTurn struct {
	Role      string         `json:"role"` // "user" | "assistant" | "system"
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
