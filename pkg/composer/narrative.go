package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

const narrativeSystemPrompt = `Eres un analista de datos senior con capacidad de RAZONAMIENTO PROFUNDO.

## PROCESO DE RAZONAMIENTO
Antes de generar tu respuesta, debes:

### PASO 1: ANALIZAR
Examina todos los datos disponibles:
- Cuales son los KPIs principales?
- Hay series temporales? Cual es la tendencia?
- Hay rankings? Quien lidera y quien esta rezagado?

### PASO 2: COMPARAR
Identifica patrones y anomalias:
- Hay cambios significativos vs periodo anterior?
- Algun valor esta fuera de lo esperado?

### PASO 3: SINTETIZAR
Genera conclusiones accionables:
- Cual es el mensaje principal?
- Que deberia hacer el usuario con esta info?

## REGLAS ESTRICTAS
1. Responde SOLO en espanol
2. Cada insight DEBE mencionar numeros especificos del dataset
3. Si hay tendencia temporal, calcula el % de cambio
4. La conclusion debe ser 1 frase que responda directamente la pregunta del usuario
5. La recomendacion debe ser ESPECIFICA y ACCIONABLE (no generica)
6. NUNCA inventes datos o numeros que no provengan del resumen

## FORMATO DE RESPUESTA (JSON puro, sin markdown):
{
  "conclusion": "Respuesta directa a la pregunta en 1 frase corta y clara",
  "summary": "Resumen ejecutivo con los 2-3 datos mas importantes",
  "insights": ["Insight 1: dato especifico + interpretacion", "Insight 2: comparacion o tendencia"],
  "recommendation": "Accion especifica: [verbo imperativo] + [que cosa] + [para lograr que resultado]"
}`

type narrativeResponse struct {
	Conclusion     string   `json:"conclusion"`
	Summary        string   `json:"summary"`
	Insights       []string `json:"insights"`
	Recommendation string   `json:"recommendation"`
}

// narrative produces the narrative blocks and the conclusion. Demo mode
// and LLM failures both fall back to static text built from the data.
func (c *Composer) narrative(ctx context.Context, question string, payload *models.DataPayload) ([]models.NarrativeConfig, string) {
	if c.demoMode || !c.useLLM {
		return staticNarrative(payload), ""
	}

	summary := summarizeData(payload)
	user := fmt.Sprintf("Pregunta del usuario: %q\n\nDatos disponibles:\n%s\n\nGenera insights basados en estos datos.",
		question, strings.Join(summary, "\n"))

	var parsed narrativeResponse
	err := llm.CompleteJSONWithRetry(ctx, c.llm, llm.Request{
		System:      narrativeSystemPrompt,
		User:        user,
		Temperature: 0.7,
	}, &parsed)
	if err != nil {
		c.logger.Warn("narrative generation failed, using static fallback", "error", err)
		return []models.NarrativeConfig{{
			Type: models.NarrativeSummary,
			Text: "Datos cargados correctamente. Revisa los graficos para mas detalles.",
		}}, ""
	}

	var narratives []models.NarrativeConfig
	if parsed.Conclusion != "" {
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeHeadline,
			Text: parsed.Conclusion,
		})
	}
	if parsed.Summary != "" {
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeSummary,
			Text: parsed.Summary,
		})
	}
	for _, insight := range parsed.Insights {
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeInsight,
			Text: insight,
		})
	}
	if parsed.Recommendation != "" {
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeCallout,
			Text: parsed.Recommendation,
		})
	}
	return narratives, parsed.Conclusion
}

// summarizeData builds the compact data summary fed to the model. Only
// values already in the payload appear here.
func summarizeData(payload *models.DataPayload) []string {
	var summary []string

	if k := payload.KPIs; k != nil {
		var parts []string
		if k.TotalSales != nil {
			parts = append(parts, fmt.Sprintf("Ventas=$%.2f", *k.TotalSales))
		}
		if k.TotalOrders != nil {
			parts = append(parts, fmt.Sprintf("Ordenes=%d", *k.TotalOrders))
		}
		if k.AvgOrderValue != nil {
			parts = append(parts, fmt.Sprintf("Ticket Promedio=$%.2f", *k.AvgOrderValue))
		}
		if k.TotalInteractions != nil {
			parts = append(parts, fmt.Sprintf("Interacciones AI=%d", *k.TotalInteractions))
		}
		if k.EscalationRate != nil {
			parts = append(parts, fmt.Sprintf("Tasa Escalamiento=%.1f%%", *k.EscalationRate))
		}
		if k.TotalQueries != nil {
			parts = append(parts, fmt.Sprintf("Consultas Preventa=%d", *k.TotalQueries))
		}
		if k.CriticalCount != nil {
			parts = append(parts, fmt.Sprintf("Stock Critico=%d", *k.CriticalCount))
		}
		if len(parts) > 0 {
			summary = append(summary, "KPIs: "+strings.Join(parts, ", "))
		}
	}

	for _, ts := range payload.TimeSeries {
		if len(ts.Points) == 0 {
			continue
		}
		first := ts.Points[0].Value
		last := ts.Points[len(ts.Points)-1].Value
		change := 0.0
		if first != 0 {
			change = (last - first) / first * 100
		}
		summary = append(summary, fmt.Sprintf("Serie %s: %d puntos, cambio %+.1f%%",
			ts.SeriesName, len(ts.Points), change))
	}

	for _, top := range payload.TopItems {
		if len(top.Items) == 0 {
			continue
		}
		summary = append(summary, fmt.Sprintf("Top %s: #1 es %q con $%.2f",
			top.RankingName, top.Items[0].Title, top.Items[0].Value))
	}

	if cmp := payload.Comparison; cmp != nil && cmp.IsComparison && cmp.DeltaSalesPct != nil {
		summary = append(summary, fmt.Sprintf("Comparacion: ventas %+.1f%% vs periodo anterior", *cmp.DeltaSalesPct))
	}

	return summary
}

// staticNarrative builds narrative blocks without a model.
func staticNarrative(payload *models.DataPayload) []models.NarrativeConfig {
	var narratives []models.NarrativeConfig

	if k := payload.KPIs; k != nil {
		switch {
		case k.TotalOrders != nil:
			avg := 0.0
			if k.AvgOrderValue != nil {
				avg = *k.AvgOrderValue
			}
			narratives = append(narratives,
				models.NarrativeConfig{
					Type: models.NarrativeHeadline,
					Text: "Las ventas muestran un comportamiento estable con oportunidades de crecimiento.",
				},
				models.NarrativeConfig{
					Type: models.NarrativeInsight,
					Text: fmt.Sprintf("Se registraron %d ordenes con un ticket promedio de $%.0f.", *k.TotalOrders, avg),
				})
		case k.TotalInteractions != nil:
			rate := 0.0
			if k.EscalationRate != nil {
				rate = *k.EscalationRate
			}
			auto := 0
			if k.AutoResponded != nil {
				auto = *k.AutoResponded
			}
			narratives = append(narratives,
				models.NarrativeConfig{
					Type: models.NarrativeHeadline,
					Text: fmt.Sprintf("El agente AI proceso %d interacciones.", *k.TotalInteractions),
				},
				models.NarrativeConfig{
					Type: models.NarrativeInsight,
					Text: fmt.Sprintf("Tasa de escalamiento: %.1f%%. Auto-respuestas: %d.", rate, auto),
				})
		case k.TotalQueries != nil:
			rate := 0.0
			if k.AnswerRate != nil {
				rate = *k.AnswerRate
			}
			pending := 0
			if k.Pending != nil {
				pending = *k.Pending
			}
			narratives = append(narratives,
				models.NarrativeConfig{
					Type: models.NarrativeHeadline,
					Text: fmt.Sprintf("Se recibieron %d consultas de preventa.", *k.TotalQueries),
				},
				models.NarrativeConfig{
					Type: models.NarrativeInsight,
					Text: fmt.Sprintf("Tasa de respuesta: %.1f%%. Pendientes: %d.", rate, pending),
				})
		}
	}

	if len(payload.TopItems) > 0 && len(payload.TopItems[0].Items) > 0 {
		top := payload.TopItems[0].Items[0]
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeInsight,
			Text: fmt.Sprintf("Top item: %q con valor $%.0f.", top.Title, top.Value),
		})
	}

	if len(narratives) == 0 {
		narratives = append(narratives, models.NarrativeConfig{
			Type: models.NarrativeSummary,
			Text: "Datos cargados correctamente.",
		})
	}
	return narratives
}

// quickConclusion is the fallback conclusion when the model produced none.
func quickConclusion(payload *models.DataPayload) string {
	if k := payload.KPIs; k != nil {
		if k.TotalSales != nil {
			orders := 0
			if k.TotalOrders != nil {
				orders = *k.TotalOrders
			}
			return fmt.Sprintf("Ventas totales: $%.0f con %d ordenes", *k.TotalSales, orders)
		}
		if k.TotalInteractions != nil {
			return fmt.Sprintf("El agente AI proceso %d interacciones", *k.TotalInteractions)
		}
		if k.TotalQueries != nil {
			return fmt.Sprintf("Se registraron %d consultas de preventa", *k.TotalQueries)
		}
	}
	return "Datos procesados correctamente"
}
