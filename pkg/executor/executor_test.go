package executor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

func demoExecutor() *Executor {
	return New(nil, 10*time.Second, true, slog.Default())
}

func TestExecutePlan_DemoSalesDashboard(t *testing.T) {
	e := demoExecutor()

	plan := models.QueryPlan{
		Queries: []models.PlannedQuery{
			{QueryID: "kpi_sales_summary", Params: map[string]any{}},
			{QueryID: "ts_sales_by_day", Params: map[string]any{}},
			{QueryID: "top_products_by_revenue", Params: map[string]any{}},
		},
	}

	payload := e.ExecutePlan(context.Background(), plan)

	require.NotNil(t, payload.KPIs)
	require.NotNil(t, payload.KPIs.TotalSales)
	assert.InDelta(t, 4567890.50, *payload.KPIs.TotalSales, 0.01)
	require.NotNil(t, payload.KPIs.TotalOrders)
	assert.Equal(t, 312, *payload.KPIs.TotalOrders)

	require.Len(t, payload.TimeSeries, 1)
	assert.NotEmpty(t, payload.TimeSeries[0].Points)

	require.Len(t, payload.TopItems, 1)
	assert.Equal(t, 1, payload.TopItems[0].Items[0].Rank)
	assert.Equal(t, map[string]any{"units_sold": 42}, payload.TopItems[0].Items[0].Extra)

	assert.True(t, payload.HasRef("kpi.total_sales"))
	assert.True(t, payload.HasRef("ts.sales_by_day"))
	assert.True(t, payload.HasRef("top.products_by_revenue"))

	require.Len(t, payload.DatasetsMeta, 3)
	for _, meta := range payload.DatasetsMeta {
		assert.Empty(t, meta.Error)
	}
}

func TestExecutePlan_UnknownQueryRecordsErrorAndContinues(t *testing.T) {
	e := demoExecutor()

	plan := models.QueryPlan{
		Queries: []models.PlannedQuery{
			{QueryID: "drop_everything", Params: map[string]any{}},
			{QueryID: "kpi_sales_summary", Params: map[string]any{}},
		},
	}

	payload := e.ExecutePlan(context.Background(), plan)

	require.Len(t, payload.DatasetsMeta, 2)
	assert.NotEmpty(t, payload.DatasetsMeta[0].Error)
	assert.Empty(t, payload.DatasetsMeta[1].Error)
	assert.NotNil(t, payload.KPIs)
}

func TestShapeKPIs_MergeAcrossQueries(t *testing.T) {
	payload := &models.DataPayload{}

	shapeKPIs(payload, map[string]any{"total_sales": 100.0, "total_orders": 10})
	shapeKPIs(payload, map[string]any{"total_interactions": 50, "escalation_rate": "12.5"})

	require.NotNil(t, payload.KPIs.TotalSales)
	require.NotNil(t, payload.KPIs.TotalInteractions)
	require.NotNil(t, payload.KPIs.EscalationRate)
	assert.InDelta(t, 12.5, *payload.KPIs.EscalationRate, 0.001)

	assert.True(t, payload.HasRef("kpi.total_sales"))
	assert.True(t, payload.HasRef("kpi.escalation_rate"))
}

func TestShapeKPIs_UnknownColumnsGoToExtra(t *testing.T) {
	payload := &models.DataPayload{}

	shapeKPIs(payload, map[string]any{"resueltos": 7, "pendientes": "3"})

	require.NotNil(t, payload.KPIs.Extra)
	assert.Equal(t, 7.0, payload.KPIs.Extra["resueltos"])
	assert.Equal(t, 3.0, payload.KPIs.Extra["pendientes"])
	assert.True(t, payload.HasRef("kpi.resueltos"))
}

func TestShapeTopItems_ChannelDisplayNames(t *testing.T) {
	payload := &models.DataPayload{}
	tmpl := allowlist.Get("sales_by_channel")
	require.NotNil(t, tmpl)

	shapeInto(payload, tmpl, []map[string]any{
		{"rank": 1, "id": "fulfillment", "title": "fulfillment", "value": "1000.50"},
		{"rank": 2, "id": "warehouse_priority", "title": "warehouse_priority", "value": 10},
	})

	require.Len(t, payload.TopItems, 1)
	items := payload.TopItems[0].Items
	assert.Equal(t, "Mercado Envios Full", items[0].Title)
	assert.Equal(t, "Warehouse Priority", items[1].Title)
	assert.InDelta(t, 1000.50, items[0].Value, 0.001)
}

func TestShapeTimeSeries_NumericStrings(t *testing.T) {
	payload := &models.DataPayload{}
	tmpl := allowlist.Get("ts_sales_by_day")
	require.NotNil(t, tmpl)

	shapeInto(payload, tmpl, []map[string]any{
		{"date": "2025-12-01", "value": "145200.00", "order_count": int64(11)},
	})

	require.Len(t, payload.TimeSeries, 1)
	point := payload.TimeSeries[0].Points[0]
	assert.Equal(t, "2025-12-01", point.Date)
	assert.InDelta(t, 145200.0, point.Value, 0.001)
	assert.Equal(t, 11, point.OrderCount)
}

func TestExecuteComparison_Demo(t *testing.T) {
	e := demoExecutor()

	cmp, err := e.ExecuteComparison(context.Background(), "2025-12-01", "2026-01-01")
	require.NoError(t, err)

	assert.True(t, cmp.IsComparison)
	assert.Equal(t, "2025-11-01", cmp.PreviousPeriod.DateFrom)
	assert.Equal(t, "2025-12-01", cmp.PreviousPeriod.DateTo)
	require.NotNil(t, cmp.DeltaSales)
	// Demo fixtures are identical for both periods.
	assert.InDelta(t, 0, *cmp.DeltaSales, 0.001)
	require.NotNil(t, cmp.DeltaSalesPct)
}

func TestExecuteComparison_InvalidRange(t *testing.T) {
	e := demoExecutor()

	_, err := e.ExecuteComparison(context.Background(), "2025-12-01", "2025-12-01")
	require.Error(t, err)

	_, err = e.ExecuteComparison(context.Background(), "not-a-date", "2025-12-01")
	require.Error(t, err)
}

func TestDeltaHelpers_ZeroPreviousGivesNilPct(t *testing.T) {
	cur, prev := 100.0, 0.0
	delta, pct := deltaFloat(&cur, &prev)
	require.NotNil(t, delta)
	assert.Equal(t, 100.0, *delta)
	assert.Nil(t, pct)

	curN, prevN := 10, 5
	deltaN, pctN := deltaInt(&curN, &prevN)
	require.NotNil(t, deltaN)
	assert.Equal(t, 5, *deltaN)
	require.NotNil(t, pctN)
	assert.InDelta(t, 100.0, *pctN, 0.001)
}

func TestChannelDisplayName(t *testing.T) {
	assert.Equal(t, "Mercado Envios", ChannelDisplayName("cross_docking"))
	assert.Equal(t, "Venta directa", ChannelDisplayName("direct"))
	assert.Equal(t, "Some Channel", ChannelDisplayName("some_channel"))
}

func TestToFloat_DriverTypes(t *testing.T) {
	for _, v := range []any{42.0, float32(42), int64(42), 42, "42", []byte("42")} {
		f, ok := toFloat(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 42.0, f, "%T", v)
	}
	_, ok := toFloat(nil)
	assert.False(t, ok)
}
