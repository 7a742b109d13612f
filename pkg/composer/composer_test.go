package composer

import (
	"context"
	"log/slog"
	"testing"
	"time"

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

func fptr(f float64) *float64 { return &f }
func iptr(n int) *int         { return &n }

func salesPayload() *models.DataPayload {
	return &models.DataPayload{
		KPIs: &models.KPIData{
			TotalSales:    fptr(4567890.50),
			TotalOrders:   iptr(312),
			AvgOrderValue: fptr(14640.03),
			TotalUnits:    iptr(451),
		},
		TimeSeries: []models.TimeSeriesData{{
			SeriesName: "sales_by_day",
			Points: []models.TimeSeriesPoint{
				{Date: "2025-12-01", Value: 100},
				{Date: "2025-12-02", Value: 150},
			},
		}},
		TopItems: []models.TopItemsData{{
			RankingName: "products_by_revenue",
			Items:       []models.TopItem{{Rank: 1, ID: "MLA001", Title: "Silla Gamer", Value: 892400}},
			Metric:      "revenue",
		}},
		AvailableRefs: []string{
			"kpi.total_sales", "kpi.total_orders", "kpi.avg_order_value", "kpi.total_units",
			"ts.sales_by_day", "top.products_by_revenue",
		},
	}
}

func demoComposer() *Composer {
	c := New(nil, false, true, slog.Default())
	c.now = func() time.Time { return time.Date(2025, 12, 23, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestCompose_SalesDashboard(t *testing.T) {
	c := demoComposer()
	spec := c.Compose(context.Background(), "como van las ventas", salesPayload())

	assert.Equal(t, "Dashboard de Ventas", spec.Title)
	assert.Contains(t, spec.Subtitle, "23/12/2025")

	require.Len(t, spec.Slots.Series, 4)
	assert.Equal(t, "Ventas Totales", spec.Slots.Series[0].Label)
	assert.Equal(t, models.FormatCurrency, spec.Slots.Series[0].Format)
	assert.Equal(t, "kpi.total_sales", spec.Slots.Series[0].ValueRef)

	require.GreaterOrEqual(t, len(spec.Slots.Charts), 2)
	types := map[string]bool{}
	for _, slot := range spec.Slots.Charts {
		if slot.Chart != nil {
			types[slot.Chart.Type] = true
		}
	}
	assert.True(t, types[models.ComponentLineChart])
	assert.True(t, types[models.ComponentBarChart])

	assert.NotEmpty(t, spec.Slots.Narrative)
	assert.NotEmpty(t, spec.Conclusion)
}

func TestCompose_RevenueSeriesGetsAreaChart(t *testing.T) {
	c := demoComposer()
	payload := &models.DataPayload{
		TimeSeries: []models.TimeSeriesData{{
			SeriesName: "revenue_by_day",
			Points:     []models.TimeSeriesPoint{{Date: "2025-12-01", Value: 10}},
		}},
		AvailableRefs: []string{"ts.revenue_by_day"},
	}

	spec := c.Compose(context.Background(), "grafico de revenue", payload)

	found := false
	for _, slot := range spec.Slots.Charts {
		if slot.Chart != nil && slot.Chart.DatasetRef == "ts.revenue_by_day" {
			assert.Equal(t, models.ComponentAreaChart, slot.Chart.Type)
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompose_DropsUnresolvableRefs(t *testing.T) {
	c := demoComposer()
	payload := salesPayload()
	// KPI data present but refs missing simulate a partially failed plan.
	payload.AvailableRefs = []string{"ts.sales_by_day", "top.products_by_revenue"}

	spec := c.Compose(context.Background(), "ventas", payload)
	assert.Empty(t, spec.Slots.Series)
	for _, slot := range spec.Slots.Charts {
		assert.True(t, refResolves(slot.DatasetRef(), payload.AvailableRefs))
	}
}

func TestCompose_TwoChartRule(t *testing.T) {
	c := demoComposer()
	// Payload with only a top ranking: composer must add the bar chart and
	// cannot invent a trend without a series.
	payload := &models.DataPayload{
		TopItems: []models.TopItemsData{{
			RankingName: "products_by_revenue",
			Items:       []models.TopItem{{Rank: 1, Title: "X", Value: 1}},
		}},
		AvailableRefs: []string{"top.products_by_revenue"},
	}

	spec := c.Compose(context.Background(), "top productos", payload)
	require.Len(t, spec.Slots.Charts, 1)
	assert.Equal(t, models.ComponentBarChart, spec.Slots.Charts[0].Chart.Type)

	// With a series available the trend chart is prepended.
	payload.TimeSeries = []models.TimeSeriesData{{
		SeriesName: "sales_by_day",
		Points:     []models.TimeSeriesPoint{{Date: "2025-12-01", Value: 5}},
	}}
	payload.AvailableRefs = append(payload.AvailableRefs, "ts.sales_by_day")

	spec = c.Compose(context.Background(), "top productos", payload)
	require.GreaterOrEqual(t, len(spec.Slots.Charts), 2)
	first := spec.Slots.Charts[0].Chart
	require.NotNil(t, first)
	assert.Equal(t, models.ComponentAreaChart, first.Type)
	assert.Contains(t, first.Title, "Tendencia: ")
	assert.Equal(t, "#3b82f6", first.Color)
}

func TestCompose_ComparisonSlot(t *testing.T) {
	c := demoComposer()
	payload := salesPayload()
	payload.Comparison = &models.ComparisonData{
		IsComparison:   true,
		CurrentPeriod:  models.ComparisonPeriod{Label: "Periodo actual"},
		PreviousPeriod: models.ComparisonPeriod{Label: "Periodo anterior"},
	}

	spec := c.Compose(context.Background(), "comparar ventas vs mes anterior", payload)

	var cmp *models.ComparisonChartConfig
	for _, slot := range spec.Slots.Charts {
		if slot.Comparison != nil {
			cmp = slot.Comparison
		}
	}
	require.NotNil(t, cmp)
	assert.Equal(t, "comparison", cmp.DatasetRef)
	assert.Equal(t, models.ComponentComparisonBar, cmp.Type)
}

func TestCompose_LLMNarrative(t *testing.T) {
	fake := &fakeLLM{response: `{
		"conclusion": "Las ventas van bien: $4.5M en el periodo",
		"summary": "312 ordenes generaron $4.5M",
		"insights": ["Ticket promedio de $14,640", "Crecimiento sostenido"],
		"recommendation": "Reforzar stock de los top 5 productos"
	}`}
	c := New(fake, true, false, slog.Default())

	spec := c.Compose(context.Background(), "como van las ventas", salesPayload())

	require.Len(t, spec.Slots.Narrative, 5)
	assert.Equal(t, models.NarrativeHeadline, spec.Slots.Narrative[0].Type)
	assert.Equal(t, models.NarrativeSummary, spec.Slots.Narrative[1].Type)
	assert.Equal(t, models.NarrativeInsight, spec.Slots.Narrative[2].Type)
	assert.Equal(t, models.NarrativeCallout, spec.Slots.Narrative[4].Type)
	assert.Equal(t, "Las ventas van bien: $4.5M en el periodo", spec.Conclusion)
}

func TestCompose_LLMFailureFallsBackToStaticText(t *testing.T) {
	fake := &fakeLLM{response: "not json at all"}
	c := New(fake, true, false, slog.Default())

	spec := c.Compose(context.Background(), "ventas", salesPayload())

	require.NotEmpty(t, spec.Slots.Narrative)
	assert.Equal(t, models.NarrativeSummary, spec.Slots.Narrative[0].Type)
	// Quick conclusion still derived from the KPIs.
	assert.Contains(t, spec.Conclusion, "Ventas totales")
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"como van las ventas", "Dashboard de Ventas"},
		{"top productos", "Analisis de Productos"},
		{"ultimas ordenes", "Resumen de Ordenes"},
		{"ultimos pedidos", "Resumen de Ordenes"},
		{"como va el agente", "Dashboard de Insights"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, generateTitle(tc.question), tc.question)
	}
}

func TestQuickConclusion(t *testing.T) {
	assert.Equal(t, "Datos procesados correctamente", quickConclusion(&models.DataPayload{}))

	p := &models.DataPayload{KPIs: &models.KPIData{TotalInteractions: iptr(248)}}
	assert.Equal(t, "El agente AI proceso 248 interacciones", quickConclusion(p))
}

func TestFormatTitle(t *testing.T) {
	assert.Equal(t, "Sales By Day", formatTitle("sales_by_day"))
	assert.Equal(t, "Products By Revenue", formatTitle("products_by_revenue"))
}

func TestTableColumns_PreferredOrderAndCap(t *testing.T) {
	row := map[string]any{
		"fecha": 1, "id": 2, "monto": 3, "buyer": 4, "producto": 5, "estado": 6, "zzz": 7,
	}
	cols := tableColumns(row, 5)
	assert.Equal(t, []string{"id", "buyer", "producto", "monto", "estado"}, cols)
}
