package models

// ResponseType classifies what the pipeline should produce for a question.
type ResponseType string

const (
	ResponseConversational ResponseType = "conversational"
	ResponseDataOnly       ResponseType = "data_only"
	ResponseDashboard      ResponseType = "dashboard"
	ResponseClarification  ResponseType = "clarification"
)

// Data domains the planner can target.
const (
	DomainSales         = "sales"
	DomainInventory     = "inventory"
	DomainConversations = "conversations"
	DomainEscalations   = "escalations"
	DomainPresale       = "presale"
)

// RoutingDecision is the router's verdict on how to handle a question.
type RoutingDecision struct {
	ResponseType   ResponseType `json:"response_type"`
	NeedsSQL       bool         `json:"needs_sql"`
	NeedsDashboard bool         `json:"needs_dashboard"`
	NeedsNarrative bool         `json:"needs_narrative"`

	// DirectResponse is set for conversational and clarification outcomes.
	DirectResponse string `json:"direct_response,omitempty"`

	// Domain is set when SQL is needed.
	Domain string `json:"domain,omitempty"`

	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ClarificationAnalysis is the clarification agent's structured verdict on
// an ambiguous question.
type ClarificationAnalysis struct {
	NeedsClarification    bool     `json:"needs_clarification"`
	Reasoning             string   `json:"reasoning"`
	InferredIntent        string   `json:"inferred_intent,omitempty"`
	InferredDomain        string   `json:"inferred_domain,omitempty"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
	Options               []string `json:"options,omitempty"`
	UnderstoodContext     string   `json:"understood_context,omitempty"`
}

// Ambiguity kinds the router's heuristics can flag before asking the
// clarification agent.
const (
	AmbiguityMultiDomain             = "multi_domain"
	AmbiguityTooShort                = "too_short"
	AmbiguityPronounWithoutContext   = "pronoun_without_context"
	AmbiguityShowWithoutObject       = "show_without_object"
	AmbiguityComparisonWithoutPeriod = "comparison_without_period"
)
