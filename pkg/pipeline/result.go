package pipeline

import (
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Meta summarizes what the data payload contains so clients can decide
// what to render without walking the full payload.
type Meta struct {
	AvailableRefs []string `json:"available_refs"`
	DatasetsCount int      `json:"datasets_count"`
	HasKPIs       bool     `json:"has_kpis"`
	HasTimeSeries bool     `json:"has_time_series"`
	HasTopItems   bool     `json:"has_top_items"`
}

// Result is the pipeline's final answer for one question.
type Result struct {
	Success        bool                  `json:"success"`
	TraceID        string                `json:"trace_id"`
	ResponseType   models.ResponseType   `json:"response_type"`
	DirectResponse string                `json:"direct_response,omitempty"`
	Dashboard      *models.DashboardSpec `json:"dashboard_spec,omitempty"`
	Payload        *models.DataPayload   `json:"data_payload,omitempty"`
	Meta           *Meta                 `json:"data_meta,omitempty"`
	AgentSteps     []models.AgentStep    `json:"agent_steps"`
	Error          *Error                `json:"error,omitempty"`
	ExecutionMS    float64               `json:"execution_time_ms"`
}

func buildMeta(payload *models.DataPayload) *Meta {
	if payload == nil {
		return nil
	}
	return &Meta{
		AvailableRefs: payload.AvailableRefs,
		DatasetsCount: len(payload.DatasetsMeta),
		HasKPIs:       payload.KPIs != nil,
		HasTimeSeries: len(payload.TimeSeries) > 0,
		HasTopItems:   len(payload.TopItems) > 0,
	}
}
