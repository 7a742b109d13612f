package planner

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Provider() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	return f.response, f.err
}

func queryIDs(plan models.QueryPlan) []string {
	ids := make([]string, 0, len(plan.Queries))
	for _, q := range plan.Queries {
		ids = append(ids, q.QueryID)
	}
	return ids
}

func TestHeuristicQueryIDs(t *testing.T) {
	tests := []struct {
		question string
		want     []string
	}{
		{
			"como esta el agente ai",
			[]string{"ai_interactions_summary", "recent_ai_interactions"},
		},
		{
			"interacciones del bot con casos escalados",
			[]string{"ai_interactions_summary", "recent_ai_interactions", "escalated_cases"},
		},
		{
			"casos escalados pendientes",
			[]string{"escalated_cases", "ai_interactions_summary"},
		},
		{
			"cual es el producto mas vendido",
			[]string{"kpi_sales_summary", "top_products_by_revenue"},
		},
		{
			"como van las ventas",
			[]string{"kpi_sales_summary", "ts_sales_by_day", "top_products_by_revenue"},
		},
		{
			"productos con stock bajo",
			[]string{"products_low_stock", "stock_alerts"},
		},
		{
			"mostrame el inventario",
			[]string{"products_inventory", "products_low_stock"},
		},
		{
			"listado de productos",
			[]string{"products_inventory", "products_low_stock"},
		},
		{
			"consultas de preventa",
			[]string{"preventa_summary", "recent_preventa_queries"},
		},
		{
			"como va el negocio",
			[]string{"kpi_sales_summary", "recent_orders"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			assert.Equal(t, tc.want, heuristicQueryIDs(tc.question))
		})
	}
}

func TestPlan_DatesFromQuestion(t *testing.T) {
	p := New(nil, false, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{
		Question: "ventas de diciembre 2024",
	})

	assert.Equal(t, "2024-12-01", plan.DateFrom)
	assert.Equal(t, "2025-01-01", plan.DateTo)
	assert.Equal(t, "diciembre 2024", plan.DateContext)
	assert.Equal(t, "heuristic", plan.Source)

	require.NotEmpty(t, plan.Queries)
	for _, q := range plan.Queries {
		if q.QueryID == "kpi_sales_summary" {
			assert.Equal(t, "2024-12-01", q.Params["date_from"])
			assert.Equal(t, "2025-01-01", q.Params["date_to"])
		}
	}
}

func TestPlan_ExplicitDatesWin(t *testing.T) {
	p := New(nil, false, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{
		Question: "ventas de diciembre 2024",
		DateFrom: "2025-06-01",
		DateTo:   "2025-07-01",
	})

	assert.Equal(t, "2025-06-01", plan.DateFrom)
	assert.Equal(t, "2025-07-01", plan.DateTo)
}

func TestPlan_NoDates(t *testing.T) {
	p := New(nil, false, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{Question: "mostrame el inventario"})
	assert.Empty(t, plan.DateFrom)
	assert.Equal(t, "ultimos 30 dias", plan.DateContext)

	// Inventory queries take no date params; none should leak in.
	for _, q := range plan.Queries {
		assert.NotContains(t, q.Params, "date_from", "query %s", q.QueryID)
	}
}

func TestPlan_LLMSelection(t *testing.T) {
	fake := &fakeLLM{response: `{"query_ids": ["kpi_sales_summary", "bogus_query", "stock_alerts"]}`}
	p := New(fake, true, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{Question: "como va todo"})
	assert.Equal(t, "llm", plan.Source)
	assert.Equal(t, []string{"kpi_sales_summary", "stock_alerts"}, queryIDs(plan))
}

func TestPlan_LLMAllInvalidFallsBack(t *testing.T) {
	fake := &fakeLLM{response: `{"query_ids": ["drop_tables", "nada"]}`}
	p := New(fake, true, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{Question: "como va el negocio"})
	assert.Equal(t, "heuristic", plan.Source)
	assert.Equal(t, []string{"kpi_sales_summary", "recent_orders"}, queryIDs(plan))
}

func TestPlan_LLMErrorFallsBack(t *testing.T) {
	fake := &fakeLLM{err: errors.New("boom")}
	p := New(fake, true, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{Question: "como van las ventas"})
	assert.Equal(t, "heuristic", plan.Source)
	assert.Equal(t, []string{"kpi_sales_summary", "ts_sales_by_day", "top_products_by_revenue"}, queryIDs(plan))
}

func TestPlan_FilterPassthrough(t *testing.T) {
	p := New(nil, false, slog.Default())

	plan := p.Plan(context.Background(), models.QueryRequest{
		Question: "mostrame el inventario",
		Filters:  map[string]any{"limit": 5, "unknown": "x"},
	})

	for _, q := range plan.Queries {
		assert.Equal(t, 5, q.Params["limit"], "query %s", q.QueryID)
		assert.NotContains(t, q.Params, "unknown")
	}
}
