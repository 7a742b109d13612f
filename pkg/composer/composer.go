// Package composer builds the dashboard spec from a data payload. The spec
// structure is deterministic: KPI cards, charts, and tables come from fixed
// mapping rules, never from a model. The LLM contributes narrative text
// only, and even that degrades to static summaries when unavailable.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tienda-lubbi/mirador/pkg/llm"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// kpiMapping links a KPI ref to its card label and display format. Order
// here is display order on the dashboard.
var kpiMapping = []struct {
	Label  string
	Ref    string
	Format string
}{
	// Sales
	{"Ventas Totales", "kpi.total_sales", models.FormatCurrency},
	{"Ordenes", "kpi.total_orders", models.FormatNumber},
	{"Ticket Promedio", "kpi.avg_order_value", models.FormatCurrency},
	{"Unidades", "kpi.total_units", models.FormatNumber},
	// AI interactions
	{"Total Interacciones", "kpi.total_interactions", models.FormatNumber},
	{"Casos Escalados", "kpi.escalated_count", models.FormatNumber},
	{"Tasa Escalamiento", "kpi.escalation_rate", models.FormatPercent},
	{"Auto-Respondidas", "kpi.auto_responded", models.FormatNumber},
	{"Tasa Auto-Respuesta", "kpi.auto_response_rate", models.FormatPercent},
	// Presale
	{"Consultas Totales", "kpi.total_queries", models.FormatNumber},
	{"Respondidas", "kpi.answered", models.FormatNumber},
	{"Pendientes", "kpi.pending", models.FormatNumber},
	{"Tasa Respuesta", "kpi.answer_rate", models.FormatPercent},
	// Inventory
	{"Stock Critico", "kpi.critical_count", models.FormatNumber},
	{"Stock Bajo", "kpi.warning_count", models.FormatNumber},
	{"Productos OK", "kpi.ok_count", models.FormatNumber},
	{"Total Productos", "kpi.total_products", models.FormatNumber},
	{"Cobertura Promedio", "kpi.avg_days_cover", models.FormatNumber},
}

// Composer builds dashboard specs.
type Composer struct {
	llm      llm.Client
	useLLM   bool
	demoMode bool
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a composer. client may be nil; narrative then falls back to
// static text.
func New(client llm.Client, useLLM, demoMode bool, logger *slog.Logger) *Composer {
	return &Composer{
		llm:      client,
		useLLM:   useLLM && client != nil,
		demoMode: demoMode,
		logger:   logger.With("component", "composer"),
		now:      time.Now,
	}
}

// Compose builds the full dashboard spec for a question and its data.
func (c *Composer) Compose(ctx context.Context, question string, payload *models.DataPayload) *models.DashboardSpec {
	spec := c.buildSpec(question, payload)

	narratives, conclusion := c.narrative(ctx, question, payload)
	spec.Slots.Narrative = narratives

	validateRefs(spec, payload.AvailableRefs)
	ensureTwoCharts(spec, payload)

	if conclusion == "" {
		conclusion = quickConclusion(payload)
	}
	spec.Conclusion = conclusion

	c.logger.Debug("dashboard composed",
		"kpis", len(spec.Slots.Series),
		"charts", len(spec.Slots.Charts),
		"narratives", len(spec.Slots.Narrative))
	return spec
}

// buildSpec assembles the component slots from the payload deterministically.
func (c *Composer) buildSpec(question string, payload *models.DataPayload) *models.DashboardSpec {
	slots := models.SlotConfig{
		Series:    []models.KPICardConfig{},
		Charts:    []models.ChartSlot{},
		Narrative: []models.NarrativeConfig{},
	}

	if payload.KPIs != nil {
		for _, m := range kpiMapping {
			if payload.HasRef(m.Ref) {
				slots.Series = append(slots.Series, models.KPICardConfig{
					Type:     models.ComponentKPICard,
					Label:    m.Label,
					ValueRef: m.Ref,
					Format:   m.Format,
				})
			}
		}
	}

	for _, ts := range payload.TimeSeries {
		ref := "ts." + ts.SeriesName
		if !payload.HasRef(ref) {
			continue
		}
		chartType := models.ComponentLineChart
		if strings.Contains(strings.ToLower(ts.SeriesName), "revenue") {
			chartType = models.ComponentAreaChart
		}
		slots.Charts = append(slots.Charts, models.ChartSlot{Chart: &models.ChartConfig{
			Type:       chartType,
			Title:      formatTitle(ts.SeriesName),
			DatasetRef: ref,
			XAxis:      "date",
			YAxis:      "value",
		}})
	}

	for _, top := range payload.TopItems {
		ref := "top." + top.RankingName
		if !payload.HasRef(ref) {
			continue
		}
		slots.Charts = append(slots.Charts, models.ChartSlot{Chart: &models.ChartConfig{
			Type:       models.ComponentBarChart,
			Title:      formatTitle(top.RankingName),
			DatasetRef: ref,
			XAxis:      "title",
			YAxis:      "value",
		}})
	}

	if len(payload.Tables) > 0 {
		table := payload.Tables[0]
		var columns []string
		if len(table.Rows) > 0 {
			columns = tableColumns(table.Rows[0], 5)
		}
		slots.Charts = append(slots.Charts, models.ChartSlot{Table: &models.TableConfig{
			Type:       models.ComponentTable,
			Title:      "Datos Detallados",
			DatasetRef: "table." + table.Name,
			Columns:    columns,
			MaxRows:    10,
		}})
	}

	if payload.Comparison != nil && payload.Comparison.IsComparison {
		slots.Charts = append(slots.Charts, models.ChartSlot{Comparison: &models.ComparisonChartConfig{
			Type:          models.ComponentComparisonBar,
			Title:         "Comparacion de Periodos",
			CurrentLabel:  payload.Comparison.CurrentPeriod.Label,
			PreviousLabel: payload.Comparison.PreviousPeriod.Label,
			Metrics:       []string{"total_sales", "total_orders", "avg_order_value", "total_units"},
			DatasetRef:    "comparison",
		}})
	}

	generated := c.now().UTC()
	return &models.DashboardSpec{
		Title:       generateTitle(question),
		Subtitle:    fmt.Sprintf("Generado: %s", c.now().Format("02/01/2006 15:04")),
		Slots:       slots,
		GeneratedAt: &generated,
	}
}

// formatTitle turns a dataset name into a readable title.
func formatTitle(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, ".", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func generateTitle(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "venta"):
		return "Dashboard de Ventas"
	case strings.Contains(q, "producto"):
		return "Analisis de Productos"
	case strings.Contains(q, "orden"), strings.Contains(q, "pedido"):
		return "Resumen de Ordenes"
	default:
		return "Dashboard de Insights"
	}
}

// tableColumns picks up to max column names with a stable preferred order.
func tableColumns(row map[string]any, max int) []string {
	preferred := []string{"id", "title", "buyer", "producto", "monto", "cantidad",
		"estado", "sku", "price", "stock", "status", "fecha", "value",
		"severity", "days_cover", "mensaje", "motivo", "tipo", "sold"}

	var columns []string
	for _, col := range preferred {
		if _, ok := row[col]; ok {
			columns = append(columns, col)
			if len(columns) == max {
				return columns
			}
		}
	}
	for col := range row {
		if !containsString(columns, col) {
			columns = append(columns, col)
			if len(columns) == max {
				break
			}
		}
	}
	return columns
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
