// Package router classifies incoming questions: conversational small talk
// gets a canned reply, everything else is routed to the data pipeline as a
// data-only or dashboard request. Keyword heuristics run first; an LLM
// classifier covers the questions the keywords miss.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

const classifierSystemPrompt = `Eres un clasificador de intenciones para un sistema de analytics de e-commerce.
Analiza la pregunta del usuario y determina:
1. response_type: "dashboard" (necesita visualización/análisis), "data_only" (solo números), "conversational" (saludo/ayuda)
2. domain: "sales" (ventas/órdenes), "inventory" (productos/stock), "conversations" (agente AI/escalados)

Responde SOLO con JSON válido:
{"response_type": "dashboard|data_only|conversational", "domain": "sales|inventory|conversations", "reasoning": "explicación breve"}`

// Router decides which agents a question needs.
type Router struct {
	llm    llm.Client
	useLLM bool
	logger *slog.Logger
}

// New builds a router. client may be nil when no provider is configured;
// the router then answers ambiguous questions with the safe fallback.
func New(client llm.Client, useLLM bool, logger *slog.Logger) *Router {
	return &Router{
		llm:    client,
		useLLM: useLLM && client != nil,
		logger: logger.With("component", "router"),
	}
}

// Route classifies a question. It never fails: when both heuristics and
// the LLM come up empty the question is treated as a sales dashboard
// request with low confidence.
func (r *Router) Route(ctx context.Context, question string) models.RoutingDecision {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, p := range conversationalPatterns {
		if p.re.MatchString(q) {
			return models.RoutingDecision{
				ResponseType:   models.ResponseConversational,
				DirectResponse: DirectResponse(p.key),
				Confidence:     0.95,
				Reasoning:      fmt.Sprintf("matched conversational pattern: %s", p.key),
			}
		}
	}

	needsData := containsAny(q, dataKeywords)
	needsDashboard := containsAny(q, dashboardKeywords)
	if needsDashboard {
		// An explicit dashboard request always needs data behind it.
		needsData = true
	}
	domain := detectDomain(q)

	if !needsData {
		r.logger.Debug("no keyword match, trying semantic routing", "question_len", len(question))
		return r.routeWithLLM(ctx, question)
	}

	if needsDashboard {
		return models.RoutingDecision{
			ResponseType:   models.ResponseDashboard,
			NeedsSQL:       true,
			NeedsDashboard: true,
			NeedsNarrative: true,
			Domain:         domain,
			Confidence:     0.9,
			Reasoning:      fmt.Sprintf("dashboard requested for domain: %s", domain),
		}
	}
	return models.RoutingDecision{
		ResponseType:   models.ResponseDataOnly,
		NeedsSQL:       true,
		NeedsNarrative: true,
		Domain:         domain,
		Confidence:     0.85,
		Reasoning:      fmt.Sprintf("data query for domain: %s", domain),
	}
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// detectDomain scores the question against each domain's keywords and
// picks the highest scorer, defaulting to sales.
func detectDomain(q string) string {
	best := models.DomainSales
	bestScore := 0
	for _, domain := range []string{
		models.DomainSales,
		models.DomainInventory,
		models.DomainConversations,
		models.DomainEscalations,
		models.DomainPresale,
	} {
		score := 0
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best = domain
			bestScore = score
		}
	}
	return best
}

type classifierVerdict struct {
	ResponseType string `json:"response_type"`
	Domain       string `json:"domain"`
	Reasoning    string `json:"reasoning"`
}

// routeWithLLM asks the model to classify a question the keywords could
// not place. Any failure degrades to the safe dashboard/sales fallback.
func (r *Router) routeWithLLM(ctx context.Context, question string) models.RoutingDecision {
	if !r.useLLM {
		return r.fallbackDecision("llm routing disabled")
	}

	var verdict classifierVerdict
	err := llm.CompleteJSON(ctx, r.llm, llm.Request{
		System:      classifierSystemPrompt,
		User:        fmt.Sprintf("Pregunta: %s", question),
		Temperature: 0.1,
	}, &verdict)
	if err != nil {
		r.logger.Warn("semantic routing failed", "error", err)
		return r.fallbackDecision(fmt.Sprintf("llm error fallback: %v", err))
	}

	domain := verdict.Domain
	if domain == "" {
		domain = models.DomainSales
	}
	reasoning := fmt.Sprintf("llm semantic: %s", verdict.Reasoning)

	switch verdict.ResponseType {
	case string(models.ResponseConversational):
		return models.RoutingDecision{
			ResponseType:   models.ResponseConversational,
			DirectResponse: DirectResponse("help"),
			Confidence:     0.8,
			Reasoning:      reasoning,
		}
	case string(models.ResponseDataOnly):
		return models.RoutingDecision{
			ResponseType:   models.ResponseDataOnly,
			NeedsSQL:       true,
			NeedsNarrative: true,
			Domain:         domain,
			Confidence:     0.8,
			Reasoning:      reasoning,
		}
	default:
		return models.RoutingDecision{
			ResponseType:   models.ResponseDashboard,
			NeedsSQL:       true,
			NeedsDashboard: true,
			NeedsNarrative: true,
			Domain:         domain,
			Confidence:     0.8,
			Reasoning:      reasoning,
		}
	}
}

func (r *Router) fallbackDecision(reasoning string) models.RoutingDecision {
	return models.RoutingDecision{
		ResponseType:   models.ResponseDashboard,
		NeedsSQL:       true,
		NeedsDashboard: true,
		NeedsNarrative: true,
		Domain:         models.DomainSales,
		Confidence:     0.5,
		Reasoning:      reasoning,
	}
}
