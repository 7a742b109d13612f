// Package allowlist holds the fixed set of SQL queries the pipeline may
// execute. The planner chooses query IDs from this registry; no SQL is ever
// generated at runtime.
//
// Safety rules: SELECT only, always LIMITed, parameters bound by name,
// no dynamic SQL.
package allowlist

import (
	"fmt"
	"sort"
	"time"
)

// Output types for shaped results.
const (
	OutputKPI        = "kpi"
	OutputTimeSeries = "time_series"
	OutputTopItems   = "top_items"
	OutputTable      = "table"
)

// Template is one allowlisted query.
type Template struct {
	ID          string
	Description string
	OutputType  string
	OutputRef   string
	SQL         string // named placeholders, e.g. :date_from
	Required    []string
	// Defaults are thunks so relative dates resolve at execution time.
	Defaults map[string]func() any
}

func daysAgo(n int) string  { return time.Now().AddDate(0, 0, -n).Format("2006-01-02") }
func tomorrow() string      { return time.Now().AddDate(0, 0, 1).Format("2006-01-02") }
func today() string         { return time.Now().Format("2006-01-02") }
func intDefault(n int) func() any { return func() any { return n } }

var registry = map[string]*Template{

	// ---------- products (ml_items) ----------

	"products_inventory": {
		ID:          "products_inventory",
		Description: "Inventario de productos con stock y precios",
		OutputType:  OutputTable,
		OutputRef:   "table.products_inventory",
		SQL: `
			SELECT
				item_id AS id,
				title,
				sku,
				price,
				available_quantity AS stock,
				status,
				total_sold
			FROM ml_items
			ORDER BY available_quantity DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(50)},
	},

	"products_low_stock": {
		ID:          "products_low_stock",
		Description: "Productos con stock bajo (menos de 10 unidades)",
		OutputType:  OutputTable,
		OutputRef:   "table.products_low_stock",
		SQL: `
			SELECT
				item_id AS id,
				title,
				sku,
				price,
				available_quantity AS stock,
				status
			FROM ml_items
			WHERE available_quantity < 10
			  AND status = 'active'
			ORDER BY available_quantity ASC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	"top_products_by_sales": {
		ID:          "top_products_by_sales",
		Description: "Top productos por unidades vendidas",
		OutputType:  OutputTopItems,
		OutputRef:   "top.products_by_sales",
		SQL: `
			SELECT
				ROW_NUMBER() OVER (ORDER BY total_sold DESC NULLS LAST) AS rank,
				item_id AS id,
				title,
				total_sold AS value,
				total_sold AS units_sold
			FROM ml_items
			ORDER BY total_sold DESC NULLS LAST
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(10)},
	},

	// ---------- AI interactions (conversations / escalations) ----------

	"ai_interactions_summary": {
		ID:          "ai_interactions_summary",
		Description: "Resumen de interacciones del agente AI (total, escaladas, por tipo)",
		OutputType:  OutputKPI,
		OutputRef:   "kpi.ai_interactions",
		SQL: `
			SELECT
				COALESCE(conv.total_interactions, 0) AS total_interactions,
				COALESCE(esc.escalated_count, 0) AS escalated_count,
				COALESCE(ROUND(esc.escalated_count::numeric / NULLIF(conv.total_interactions, 0) * 100, 1), 0) AS escalation_rate,
				COALESCE(conv.total_interactions, 0) - COALESCE(esc.escalated_count, 0) AS auto_responded,
				COALESCE(
					ROUND(
						(COALESCE(conv.total_interactions, 0) - COALESCE(esc.escalated_count, 0))::numeric
						/ NULLIF(conv.total_interactions, 0) * 100,
						1
					),
					0
				) AS auto_response_rate,
				COALESCE(esc.pending, 0) AS pendientes,
				COALESCE(esc.resolved, 0) AS resueltos
			FROM
				(SELECT COUNT(*) AS total_interactions FROM conversations) conv,
				(
					SELECT
						COUNT(*) AS escalated_count,
						COUNT(*) FILTER (WHERE status = 'resolved') AS resolved,
						COUNT(*) FILTER (WHERE status = 'pending') AS pending
					FROM escalations
				) esc`,
	},

	"recent_ai_interactions": {
		ID:          "recent_ai_interactions",
		Description: "Ultimas interacciones del agente AI con compradores",
		OutputType:  OutputTable,
		OutputRef:   "table.recent_ai_interactions",
		SQL: `
			SELECT
				id,
				buyer_nickname,
				status,
				case_type,
				last_message_at
			FROM conversations
			ORDER BY last_message_at DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	"escalated_cases": {
		ID:          "escalated_cases",
		Description: "Casos escalados a humano con motivo",
		OutputType:  OutputTable,
		OutputRef:   "table.escalated_cases",
		SQL: `
			SELECT
				id,
				buyer_nickname,
				buyer_message,
				reason,
				case_type,
				status,
				priority,
				source,
				created_at
			FROM escalations
			ORDER BY created_at DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	"interactions_by_case_type": {
		ID:          "interactions_by_case_type",
		Description: "Interacciones agrupadas por tipo de caso",
		OutputType:  OutputTopItems,
		OutputRef:   "top.interactions_by_case_type",
		SQL: `
			SELECT
				ROW_NUMBER() OVER (ORDER BY COUNT(*) DESC) AS rank,
				COALESCE(case_type, 'sin_tipo') AS id,
				INITCAP(REPLACE(COALESCE(case_type, 'sin_tipo'), '_', ' ')) AS title,
				COUNT(*) AS value
			FROM escalations
			GROUP BY case_type
			ORDER BY value DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(10)},
	},

	// ---------- presale (preventa_queries) ----------

	"preventa_summary": {
		ID:          "preventa_summary",
		Description: "Resumen de consultas de preventa (total, respondidas, pendientes)",
		OutputType:  OutputKPI,
		OutputRef:   "kpi.preventa",
		SQL: `
			SELECT
				COUNT(*) AS total_queries,
				COUNT(*) FILTER (WHERE status = 'answered') AS answered,
				COUNT(*) FILTER (WHERE status = 'pending') AS pending,
				COALESCE(
					ROUND(COUNT(*) FILTER (WHERE status = 'answered')::numeric / NULLIF(COUNT(*), 0) * 100, 1),
					0
				) AS answer_rate
			FROM preventa_queries`,
	},

	"recent_preventa_queries": {
		ID:          "recent_preventa_queries",
		Description: "Ultimas preguntas de preventa de compradores",
		OutputType:  OutputTable,
		OutputRef:   "table.recent_preventa",
		SQL: `
			SELECT
				id,
				buyer_nickname,
				question,
				status,
				created_at
			FROM preventa_queries
			ORDER BY created_at DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	// ---------- stock dashboard (v_stock_dashboard) ----------

	"stock_alerts": {
		ID:          "stock_alerts",
		Description: "Alertas de stock critico y productos a reponer",
		OutputType:  OutputTable,
		OutputRef:   "table.stock_alerts",
		SQL: `
			SELECT
				item_id AS id,
				title,
				available_quantity AS stock,
				days_cover,
				severity,
				reorder_date
			FROM v_stock_dashboard
			WHERE severity IN ('critical', 'warning')
			ORDER BY severity DESC, days_cover ASC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	"kpi_inventory_summary": {
		ID:          "kpi_inventory_summary",
		Description: "Resumen de estado de stock (criticos, alertas, cobertura)",
		OutputType:  OutputKPI,
		OutputRef:   "kpi.inventory",
		SQL: `
			SELECT
				COUNT(*) FILTER (WHERE severity = 'critical') AS critical_count,
				COUNT(*) FILTER (WHERE severity = 'warning') AS warning_count,
				COUNT(*) FILTER (WHERE severity = 'ok') AS ok_count,
				COUNT(*) AS total_products,
				COALESCE(ROUND(AVG(days_cover)::numeric, 1), 0) AS avg_days_cover
			FROM v_stock_dashboard`,
	},

	// ---------- sales (ml_orders) ----------

	"kpi_sales_summary": {
		ID:          "kpi_sales_summary",
		Description: "Resumen de KPIs de ventas (total, cantidad, promedio) - Solo ordenes PAID",
		OutputType:  OutputKPI,
		OutputRef:   "kpi",
		SQL: `
			SELECT
				COALESCE(SUM(total_amount), 0) AS total_sales,
				COUNT(*) AS total_orders,
				COALESCE(AVG(total_amount), 0) AS avg_order_value,
				COALESCE(SUM(quantity), 0) AS total_units
			FROM ml_orders
			WHERE status = 'paid'
			  AND date_created >= :date_from
			  AND date_created < :date_to`,
		Required: []string{"date_from", "date_to"},
		Defaults: map[string]func() any{
			"date_from": func() any { return daysAgo(395) }, // ~13 months
			"date_to":   func() any { return tomorrow() },
		},
	},

	"ts_sales_by_day": {
		ID:          "ts_sales_by_day",
		Description: "Ventas agrupadas por dia para grafico de linea",
		OutputType:  OutputTimeSeries,
		OutputRef:   "ts.sales_by_day",
		SQL: `
			SELECT
				DATE(date_created) AS date,
				SUM(total_amount) AS value,
				COUNT(*) AS order_count
			FROM ml_orders
			WHERE date_created >= :date_from
			  AND date_created < :date_to
			GROUP BY DATE(date_created)
			ORDER BY date ASC
			LIMIT :limit`,
		Required: []string{"date_from", "date_to"},
		Defaults: map[string]func() any{
			"date_from": func() any { return daysAgo(30) },
			"date_to":   func() any { return today() },
			"limit":     intDefault(31),
		},
	},

	"sales_by_month": {
		ID:          "sales_by_month",
		Description: "Ventas agrupadas por mes para analisis de estacionalidad",
		OutputType:  OutputTimeSeries,
		OutputRef:   "ts.sales_by_month",
		SQL: `
			SELECT
				TO_CHAR(date_created, 'YYYY-MM') AS date,
				SUM(total_amount) AS value,
				COUNT(*) AS order_count
			FROM ml_orders
			WHERE status = 'paid'
			  AND date_created >= :date_from
			  AND date_created < :date_to
			GROUP BY TO_CHAR(date_created, 'YYYY-MM')
			ORDER BY date ASC
			LIMIT :limit`,
		Required: []string{"date_from", "date_to"},
		Defaults: map[string]func() any{
			"date_from": func() any { return daysAgo(395) },
			"date_to":   func() any { return tomorrow() },
			"limit":     intDefault(13),
		},
	},

	"top_products_by_revenue": {
		ID:          "top_products_by_revenue",
		Description: "Top productos ordenados por ingresos en un periodo de tiempo",
		OutputType:  OutputTopItems,
		OutputRef:   "top.products_by_revenue",
		SQL: `
			SELECT
				ROW_NUMBER() OVER (ORDER BY SUM(o.total_amount) DESC) AS rank,
				o.item_id AS id,
				i.title,
				SUM(o.total_amount) AS value,
				SUM(o.quantity) AS units_sold
			FROM ml_orders o
			LEFT JOIN ml_items i ON o.item_id = i.item_id
			WHERE o.status = 'paid'
			  AND o.date_created >= :date_from
			  AND o.date_created < :date_to
			GROUP BY o.item_id, i.title
			ORDER BY value DESC
			LIMIT :limit`,
		Required: []string{"date_from", "date_to"},
		Defaults: map[string]func() any{
			"date_from": func() any { return daysAgo(30) },
			"date_to":   func() any { return tomorrow() },
			"limit":     intDefault(10),
		},
	},

	"recent_orders": {
		ID:          "recent_orders",
		Description: "Ultimas ordenes para mostrar en tabla",
		OutputType:  OutputTable,
		OutputRef:   "table.recent_orders",
		SQL: `
			SELECT
				order_id AS id,
				buyer_nickname,
				item_title,
				total_amount,
				quantity,
				status,
				shipping_status,
				date_created
			FROM ml_orders
			ORDER BY date_created DESC
			LIMIT :limit`,
		Defaults: map[string]func() any{"limit": intDefault(20)},
	},

	"sales_by_channel": {
		ID:          "sales_by_channel",
		Description: "Ventas agrupadas por canal (MercadoLibre, etc)",
		OutputType:  OutputTopItems,
		OutputRef:   "top.sales_by_channel",
		SQL: `
			SELECT
				ROW_NUMBER() OVER (ORDER BY SUM(total_amount) DESC) AS rank,
				COALESCE(shipping_type, 'direct') AS id,
				COALESCE(shipping_type, 'direct') AS title,
				SUM(total_amount) AS value,
				COUNT(*) AS order_count
			FROM ml_orders
			WHERE date_created >= :date_from
			  AND date_created < :date_to
			GROUP BY shipping_type
			ORDER BY value DESC
			LIMIT :limit`,
		Required: []string{"date_from", "date_to"},
		Defaults: map[string]func() any{
			"date_from": func() any { return daysAgo(30) },
			"date_to":   func() any { return today() },
			"limit":     intDefault(10),
		},
	},
}

// Get returns the template for id, or nil when it is not allowlisted.
func Get(id string) *Template {
	return registry[id]
}

// Validate reports whether id is in the allowlist.
func Validate(id string) bool {
	_, ok := registry[id]
	return ok
}

// Available returns id → description for every allowlisted query, used by
// the LLM planner prompt and the /api/queries endpoint.
func Available() map[string]string {
	out := make(map[string]string, len(registry))
	for id, t := range registry {
		out[id] = t.Description
	}
	return out
}

// IDs returns the allowlisted query IDs in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildParams merges defaults with user-supplied overrides and checks that
// every required parameter is present. Nil user values never override a
// default.
func BuildParams(id string, userParams map[string]any) (map[string]any, error) {
	t := registry[id]
	if t == nil {
		return nil, fmt.Errorf("query %q is not in the allowlist", id)
	}

	params := make(map[string]any, len(t.Defaults)+len(userParams))
	for key, thunk := range t.Defaults {
		params[key] = thunk()
	}
	for key, value := range userParams {
		if value != nil && value != "" {
			params[key] = value
		}
	}

	for _, req := range t.Required {
		if _, ok := params[req]; !ok {
			return nil, &MissingParamError{QueryID: id, Param: req}
		}
	}
	return params, nil
}

// MissingParamError reports a required parameter absent after defaulting.
type MissingParamError struct {
	QueryID string
	Param   string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("query %q: missing required parameter %q", e.QueryID, e.Param)
}
