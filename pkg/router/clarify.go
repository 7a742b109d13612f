package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

const clarificationSystemPrompt = `Eres un agente de clarificacion para un sistema de Business Intelligence de e-commerce.

Tu trabajo es analizar preguntas ambiguas y decidir:
1. Si REALMENTE necesitan clarificacion (muchas veces puedes inferir la intencion)
2. Si necesitan clarificacion, generar una pregunta contextual y especifica

CONTEXTO DEL SISTEMA:
- Base de datos de e-commerce con: ventas/ordenes, inventario/productos, interacciones de agente AI
- Los usuarios preguntan sobre metricas de negocio, tendencias, alertas de stock, etc.

REGLAS IMPORTANTES:
1. NO pidas clarificacion si puedes inferir razonablemente la intencion
2. "producto mas vendido" claramente es sobre VENTAS (no inventario), no pidas clarificacion
3. "como van las ventas" es claro, no necesita clarificacion
4. "mostrame inventario" es claro, no necesita clarificacion
5. Solo pide clarificacion cuando hay AMBIGUEDAD REAL (ej: "comparar" sin especificar que)

CUANDO PEDIR CLARIFICACION:
- "mostrame" sin objeto (mostrame que?)
- "comparar" sin especificar periodos o metricas
- Pronombres sin contexto ("eso", "esto")
- Preguntas de 1-2 palabras muy vagas ("datos?", "ventas?")

CUANDO NO PEDIR CLARIFICACION (inferir intencion):
- "producto mas vendido" -> inferir: quiere saber que producto vendio mas (dominio: sales)
- "stock bajo" -> inferir: productos con stock critico (dominio: inventory)
- "como va el agente" -> inferir: metricas del agente AI (dominio: conversations)

Si decides que SI necesita clarificacion:
- Genera una pregunta corta y especifica
- Ofrece 2-4 opciones claras
- Menciona lo que entendiste de la pregunta original

Responde SOLO con JSON valido con esta forma:
{"needs_clarification": true|false, "reasoning": "...", "inferred_intent": "...", "inferred_domain": "sales|inventory|conversations", "clarification_question": "...", "options": ["..."], "understood_context": "..."}`

// Descriptions attached to the prompt when the heuristics flagged a
// specific kind of ambiguity.
var ambiguityDescriptions = map[string]string{
	models.AmbiguityMultiDomain:             "La pregunta menciona terminos de multiples dominios (ventas, inventario, etc)",
	models.AmbiguityTooShort:                "La pregunta es muy corta y podria ser ambigua",
	models.AmbiguityPronounWithoutContext:   "La pregunta usa pronombres sin contexto previo",
	models.AmbiguityShowWithoutObject:       "Pide mostrar algo pero no especifica que",
	models.AmbiguityComparisonWithoutPeriod: "Pide comparar pero no especifica periodos",
}

// ClarificationAgent decides whether an ambiguous question really needs a
// follow-up, and if so generates a contextual one instead of a canned
// template.
type ClarificationAgent struct {
	llm    llm.Client
	logger *slog.Logger
}

// NewClarificationAgent builds the agent. client may be nil; Analyze then
// always returns the permissive fallback.
func NewClarificationAgent(client llm.Client, logger *slog.Logger) *ClarificationAgent {
	return &ClarificationAgent{
		llm:    client,
		logger: logger.With("component", "clarification_agent"),
	}
}

// Analyze asks the model whether the question needs clarification.
// detectedAmbiguity is the heuristic flag, or empty. On any failure the
// agent assumes intent is clear so the pipeline can try to answer anyway.
func (a *ClarificationAgent) Analyze(ctx context.Context, question, detectedAmbiguity string) models.ClarificationAnalysis {
	if a.llm == nil {
		return a.fallback("llm not configured, assuming clear intent")
	}

	user := fmt.Sprintf("Pregunta del usuario: %q", question)
	if detectedAmbiguity != "" {
		desc, ok := ambiguityDescriptions[detectedAmbiguity]
		if !ok {
			desc = detectedAmbiguity
		}
		user += fmt.Sprintf("\n\nNOTA: El sistema detecto posible ambiguedad tipo %q: %s", detectedAmbiguity, desc)
	}

	var analysis models.ClarificationAnalysis
	err := llm.CompleteJSON(ctx, a.llm, llm.Request{
		System:      clarificationSystemPrompt,
		User:        user,
		Temperature: 0.1,
	}, &analysis)
	if err != nil {
		a.logger.Warn("clarification analysis failed", "error", err)
		return a.fallback(fmt.Sprintf("analysis error, assuming clear intent: %v", err))
	}

	a.logger.Debug("clarification analyzed",
		"needs_clarification", analysis.NeedsClarification,
		"inferred_domain", analysis.InferredDomain)
	return analysis
}

func (a *ClarificationAgent) fallback(reasoning string) models.ClarificationAnalysis {
	return models.ClarificationAnalysis{
		NeedsClarification: false,
		Reasoning:          reasoning,
		InferredIntent:     "dashboard de datos",
		InferredDomain:     models.DomainSales,
	}
}
