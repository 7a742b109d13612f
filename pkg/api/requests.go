package api

import "github.com/tienda-lubbi/mirador/pkg/models"

// InsightRequest is the body of the insights endpoints.
type InsightRequest struct {
	Question string         `json:"question" binding:"required"`
	DateFrom string         `json:"date_from,omitempty"`
	DateTo   string         `json:"date_to,omitempty"`
	Filters  map[string]any `json:"filters,omitempty"`
}

func (r InsightRequest) toQueryRequest() models.QueryRequest {
	return models.QueryRequest{
		Question: r.Question,
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
		Filters:  r.Filters,
	}
}

// ChatRequest is the body of the AI SDK chat endpoint.
type ChatRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}
