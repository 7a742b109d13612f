// Package planner turns a routed question into a QueryPlan: which allowlist
// queries to run and with what date bounds. Keyword heuristics decide the
// query set; an optional LLM planner can refine the selection but is only
// ever allowed to pick from the allowlist.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/dates"
	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Planner selects allowlist queries for a question.
type Planner struct {
	llm    llm.Client
	useLLM bool
	logger *slog.Logger
}

// New builds a planner. client may be nil; planning is then heuristic only.
func New(client llm.Client, useLLM bool, logger *slog.Logger) *Planner {
	return &Planner{
		llm:    client,
		useLLM: useLLM && client != nil,
		logger: logger.With("component", "planner"),
	}
}

// Plan builds the query plan for a request. Explicit dates on the request
// win over anything parsed out of the question text.
func (p *Planner) Plan(ctx context.Context, req models.QueryRequest) models.QueryPlan {
	dateFrom, dateTo := req.DateFrom, req.DateTo
	if dateFrom == "" && dateTo == "" {
		if r, ok := dates.ExtractRange(req.Question); ok {
			dateFrom, dateTo = r.From, r.To
		}
	}

	plan := models.QueryPlan{
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		DateContext: dates.FormatContext(dateFrom, dateTo),
		Source:      "heuristic",
	}

	ids := heuristicQueryIDs(req.Question)
	if p.useLLM {
		if llmIDs, ok := p.planWithLLM(ctx, req.Question, dateFrom, dateTo); ok {
			ids = llmIDs
			plan.Source = "llm"
		}
	}

	for _, id := range ids {
		plan.Queries = append(plan.Queries, models.PlannedQuery{
			QueryID: id,
			Params:  queryParams(id, dateFrom, dateTo, req.Filters),
		})
	}

	p.logger.Debug("plan built",
		"queries", ids,
		"source", plan.Source,
		"date_from", dateFrom,
		"date_to", dateTo)
	return plan
}

// heuristicQueryIDs maps a question to allowlist queries by keyword.
// Branch order matters: AI and escalation terms win over sales terms, and
// "mas vendido" is a sales question even though it mentions products.
func heuristicQueryIDs(question string) []string {
	q := strings.ToLower(question)

	switch {
	case containsAny(q, "agente", "ai", "interacci", "bot", "asistente"):
		ids := []string{"ai_interactions_summary", "recent_ai_interactions"}
		if strings.Contains(q, "escalad") {
			ids = append(ids, "escalated_cases")
		}
		return ids

	case strings.Contains(q, "escalad"):
		return []string{"escalated_cases", "ai_interactions_summary"}

	case containsAny(q, "mas vendido", "más vendido", "mas vendidos", "más vendidos",
		"top producto", "top productos", "mejores producto", "mejores productos"):
		return []string{"kpi_sales_summary", "top_products_by_revenue"}

	case containsAny(q, "venta", "factura", "ingreso", "revenue", "vendido", "vendieron", "facturado"):
		return []string{"kpi_sales_summary", "ts_sales_by_day", "top_products_by_revenue"}

	case containsAny(q, "inventario", "stock", "existencia"):
		if containsAny(q, "bajo", "alerta", "reponer", "falta") {
			return []string{"products_low_stock", "stock_alerts"}
		}
		return []string{"products_inventory", "products_low_stock"}

	case strings.Contains(q, "producto") && !containsAny(q, "vendido", "venta", "revenue"):
		return []string{"products_inventory", "products_low_stock"}

	case containsAny(q, "preventa", "consulta", "pregunta"):
		return []string{"preventa_summary", "recent_preventa_queries"}

	default:
		return []string{"kpi_sales_summary", "recent_orders"}
	}
}

func containsAny(q string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// queryParams merges date bounds and user filters into the params the
// allowlist will later default-fill and validate.
func queryParams(id, dateFrom, dateTo string, filters map[string]any) map[string]any {
	params := map[string]any{}
	if dateFrom != "" {
		params["date_from"] = dateFrom
	}
	if dateTo != "" {
		params["date_to"] = dateTo
	}
	for k, v := range filters {
		params[k] = v
	}

	// Drop anything the template does not declare.
	t := allowlist.Get(id)
	if t == nil {
		return params
	}
	for k := range params {
		if _, declared := t.Defaults[k]; declared {
			continue
		}
		if containsString(t.Required, k) {
			continue
		}
		delete(params, k)
	}
	return params
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

type llmPlan struct {
	QueryIDs []string       `json:"query_ids"`
	Params   map[string]any `json:"params"`
}

// planWithLLM asks the model to pick queries from the allowlist. Invalid
// IDs are dropped; an empty or failed result falls back to heuristics.
func (p *Planner) planWithLLM(ctx context.Context, question, dateFrom, dateTo string) ([]string, bool) {
	available := allowlist.Available()
	var list strings.Builder
	for _, id := range allowlist.IDs() {
		fmt.Fprintf(&list, "- %s: %s\n", id, available[id])
	}

	system := fmt.Sprintf(`Eres un experto en analisis de datos de e-commerce para MercadoLibre Argentina.

## QUERIES DISPONIBLES (SOLO puedes elegir de esta lista):
%s
## REGLAS DE SELECCION
1. SOLO responde con JSON valido (sin markdown)
2. SOLO usa query_ids de la lista de arriba
3. Elige las queries MAS RELEVANTES (max 3)
4. Para ventas: SIEMPRE incluir kpi_sales_summary

FORMATO JSON (sin markdown):
{"query_ids": ["query_id1", "query_id2"], "params": {"limit": 10}}`, list.String())

	from := dateFrom
	if from == "" {
		from = "ultimos 30 dias"
	}
	to := dateTo
	if to == "" {
		to = "hoy"
	}
	user := fmt.Sprintf("Pregunta del usuario: %q\nRango de fechas: %s a %s\n\nResponde SOLO con el JSON de queries a ejecutar.", question, from, to)

	var parsed llmPlan
	err := llm.CompleteJSON(ctx, p.llm, llm.Request{
		System:      system,
		User:        user,
		Temperature: 0.1,
	}, &parsed)
	if err != nil {
		p.logger.Warn("llm planning failed, using heuristics", "error", err)
		return nil, false
	}

	var valid []string
	for _, id := range parsed.QueryIDs {
		if allowlist.Validate(id) {
			valid = append(valid, id)
		} else {
			p.logger.Warn("llm proposed unknown query, dropping", "query_id", id)
		}
	}
	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}
