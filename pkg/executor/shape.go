package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tienda-lubbi/mirador/pkg/allowlist"
	"github.com/tienda-lubbi/mirador/pkg/models"
)

// Display names for Mercado Libre shipping channels.
var channelNames = map[string]string{
	"fulfillment":   "Mercado Envios Full",
	"cross_docking": "Mercado Envios",
	"drop_off":      "Punto de despacho",
	"self_service":  "Envio por cuenta propia",
	"direct":        "Venta directa",
	"xd_drop_off":   "Cross Docking",
}

// ChannelDisplayName renders a shipping channel for end users. Unknown
// channels get a title-cased fallback.
func ChannelDisplayName(channel string) string {
	if name, ok := channelNames[channel]; ok {
		return name
	}
	words := strings.Split(strings.ReplaceAll(channel, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// shapeInto folds one query's rows into the payload according to the
// template's output type, registering the refs it makes resolvable.
func shapeInto(payload *models.DataPayload, t *allowlist.Template, rows []map[string]any) {
	if t == nil || len(rows) == 0 {
		if t != nil && t.OutputType == allowlist.OutputTable {
			// An empty table is still a valid (empty) dataset.
			shapeTable(payload, t, rows)
		}
		return
	}

	switch t.OutputType {
	case allowlist.OutputKPI:
		shapeKPIs(payload, rows[0])
	case allowlist.OutputTimeSeries:
		shapeTimeSeries(payload, t, rows)
	case allowlist.OutputTopItems:
		shapeTopItems(payload, t, rows)
	case allowlist.OutputTable:
		shapeTable(payload, t, rows)
	}
}

// shapeKPIs merges a single KPI row into the payload. Known columns land
// on typed fields, the rest go to Extra; every column becomes a kpi.<name>
// ref.
func shapeKPIs(payload *models.DataPayload, row map[string]any) {
	if payload.KPIs == nil {
		payload.KPIs = &models.KPIData{}
	}
	k := payload.KPIs

	for col, raw := range row {
		switch col {
		case "total_sales":
			k.TotalSales = floatPtr(raw)
		case "total_orders":
			k.TotalOrders = intPtr(raw)
		case "avg_order_value":
			k.AvgOrderValue = floatPtr(raw)
		case "total_units":
			k.TotalUnits = intPtr(raw)
		case "total_interactions":
			k.TotalInteractions = intPtr(raw)
		case "escalated_count":
			k.EscalatedCount = intPtr(raw)
		case "escalation_rate":
			k.EscalationRate = floatPtr(raw)
		case "auto_responded":
			k.AutoResponded = intPtr(raw)
		case "auto_response_rate":
			k.AutoResponseRate = floatPtr(raw)
		case "total_queries":
			k.TotalQueries = intPtr(raw)
		case "answered":
			k.Answered = intPtr(raw)
		case "pending":
			k.Pending = intPtr(raw)
		case "answer_rate":
			k.AnswerRate = floatPtr(raw)
		case "critical_count":
			k.CriticalCount = intPtr(raw)
		case "warning_count":
			k.WarningCount = intPtr(raw)
		case "ok_count":
			k.OKCount = intPtr(raw)
		case "total_products":
			k.TotalProducts = intPtr(raw)
		case "avg_days_cover":
			k.AvgDaysCover = floatPtr(raw)
		default:
			if f, ok := toFloat(raw); ok {
				if k.Extra == nil {
					k.Extra = map[string]float64{}
				}
				k.Extra[col] = f
			}
		}
		addRef(payload, "kpi."+col)
	}
}

func shapeTimeSeries(payload *models.DataPayload, t *allowlist.Template, rows []map[string]any) {
	name := t.ID
	if t.OutputRef != "" {
		parts := strings.Split(t.OutputRef, ".")
		name = parts[len(parts)-1]
	}

	ts := models.TimeSeriesData{SeriesName: name}
	for _, row := range rows {
		point := models.TimeSeriesPoint{
			Date:  toString(row["date"]),
			Value: floatOr(row["value"], 0),
		}
		if n, ok := toInt(row["order_count"]); ok {
			point.OrderCount = n
		}
		ts.Points = append(ts.Points, point)
	}

	payload.TimeSeries = append(payload.TimeSeries, ts)
	addRef(payload, refOr(t, "ts"))
}

func shapeTopItems(payload *models.DataPayload, t *allowlist.Template, rows []map[string]any) {
	name := t.ID
	if t.OutputRef != "" {
		parts := strings.Split(t.OutputRef, ".")
		name = parts[len(parts)-1]
	}

	top := models.TopItemsData{RankingName: name, Metric: "revenue"}
	for i, row := range rows {
		rank := i + 1
		if n, ok := toInt(row["rank"]); ok {
			rank = n
		}
		item := models.TopItem{
			Rank:  rank,
			ID:    toString(row["id"]),
			Title: toString(row["title"]),
			Value: floatOr(row["value"], 0),
		}
		if t.ID == "sales_by_channel" {
			item.Title = ChannelDisplayName(item.ID)
		}
		if units, ok := row["units_sold"]; ok {
			item.Extra = map[string]any{"units_sold": units}
		}
		top.Items = append(top.Items, item)
	}

	payload.TopItems = append(payload.TopItems, top)
	addRef(payload, refOr(t, "top"))
}

func shapeTable(payload *models.DataPayload, t *allowlist.Template, rows []map[string]any) {
	payload.Tables = append(payload.Tables, models.TableData{Name: t.ID, Rows: rows})
	payload.RawData = append(payload.RawData, rows...)
	addRef(payload, refOr(t, "table"))
}

func refOr(t *allowlist.Template, prefix string) string {
	if t.OutputRef != "" {
		return t.OutputRef
	}
	return fmt.Sprintf("%s.%s", prefix, t.ID)
}

func addRef(payload *models.DataPayload, ref string) {
	if !payload.HasRef(ref) {
		payload.AvailableRefs = append(payload.AvailableRefs, ref)
	}
}

// Numeric coercion helpers. Postgres numerics arrive as strings through
// database/sql, so string parsing is the common path.

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	if f, ok := toFloat(v); ok {
		return int(f), true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func floatOr(v any, fallback float64) float64 {
	if f, ok := toFloat(v); ok {
		return f
	}
	return fallback
}

func floatPtr(v any) *float64 {
	if f, ok := toFloat(v); ok {
		return &f
	}
	return nil
}

func intPtr(v any) *int {
	if n, ok := toInt(v); ok {
		return &n
	}
	return nil
}
