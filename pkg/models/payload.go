// Package models defines the wire types shared across the insight pipeline:
// requests, data payloads, dashboard specs, and routing decisions.
package models

import "time"

// DatasetMeta records execution metadata for one allowlisted query.
type DatasetMeta struct {
	QueryID         string    `json:"query_id"`
	RowCount        int       `json:"row_count"`
	ExecutionTimeMS float64   `json:"execution_time_ms"`
	ExecutedAt      time.Time `json:"executed_at"`
	Error           string    `json:"error,omitempty"`
}

// KPIData holds the merged KPI fields produced by kpi-type queries.
// Fields are pointers so absent metrics serialize as null and the composer
// can tell "not queried" apart from zero.
type KPIData struct {
	// Sales
	TotalSales    *float64 `json:"total_sales,omitempty"`
	TotalOrders   *int     `json:"total_orders,omitempty"`
	AvgOrderValue *float64 `json:"avg_order_value,omitempty"`
	TotalUnits    *int     `json:"total_units,omitempty"`

	// AI interactions
	TotalInteractions *int     `json:"total_interactions,omitempty"`
	EscalatedCount    *int     `json:"escalated_count,omitempty"`
	EscalationRate    *float64 `json:"escalation_rate,omitempty"`
	AutoResponded     *int     `json:"auto_responded,omitempty"`
	AutoResponseRate  *float64 `json:"auto_response_rate,omitempty"`

	// Presale
	TotalQueries *int     `json:"total_queries,omitempty"`
	Answered     *int     `json:"answered,omitempty"`
	Pending      *int     `json:"pending,omitempty"`
	AnswerRate   *float64 `json:"answer_rate,omitempty"`

	// Inventory
	CriticalCount *int     `json:"critical_count,omitempty"`
	WarningCount  *int     `json:"warning_count,omitempty"`
	OKCount       *int     `json:"ok_count,omitempty"`
	TotalProducts *int     `json:"total_products,omitempty"`
	AvgDaysCover  *float64 `json:"avg_days_cover,omitempty"`

	// Extra carries KPI columns outside the known set, keyed by column name.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// TimeSeriesPoint is one point of a time series.
type TimeSeriesPoint struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	OrderCount int     `json:"order_count,omitempty"`
	Label      string  `json:"label,omitempty"`
}

// TimeSeriesData is a named time series.
type TimeSeriesData struct {
	SeriesName string            `json:"series_name"`
	Points     []TimeSeriesPoint `json:"points"`
}

// TopItem is one entry of a ranking.
type TopItem struct {
	Rank  int            `json:"rank"`
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Value float64        `json:"value"`
	Extra map[string]any `json:"extra,omitempty"`
}

// TopItemsData is a named ranking.
type TopItemsData struct {
	RankingName string    `json:"ranking_name"`
	Items       []TopItem `json:"items"`
	Metric      string    `json:"metric"`
}

// TableData is a named table of raw rows.
type TableData struct {
	Name string           `json:"name"`
	Rows []map[string]any `json:"rows"`
}

// ComparisonPeriod describes one side of a period comparison.
type ComparisonPeriod struct {
	Label    string   `json:"label"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
	KPIs     *KPIData `json:"kpis,omitempty"`
}

// ComparisonData holds two compared periods plus computed deltas.
// Percentage deltas are nil when the previous value is zero.
type ComparisonData struct {
	IsComparison   bool             `json:"is_comparison"`
	CurrentPeriod  ComparisonPeriod `json:"current_period"`
	PreviousPeriod ComparisonPeriod `json:"previous_period"`

	DeltaSales       *float64 `json:"delta_sales,omitempty"`
	DeltaSalesPct    *float64 `json:"delta_sales_pct,omitempty"`
	DeltaOrders      *int     `json:"delta_orders,omitempty"`
	DeltaOrdersPct   *float64 `json:"delta_orders_pct,omitempty"`
	DeltaAvgOrder    *float64 `json:"delta_avg_order,omitempty"`
	DeltaAvgOrderPct *float64 `json:"delta_avg_order_pct,omitempty"`
	DeltaUnits       *int     `json:"delta_units,omitempty"`
	DeltaUnitsPct    *float64 `json:"delta_units_pct,omitempty"`
}

// DataPayload is the executor's full output: every dataset the composer may
// reference, plus the list of refs that are actually resolvable.
type DataPayload struct {
	KPIs       *KPIData         `json:"kpis,omitempty"`
	TimeSeries []TimeSeriesData `json:"time_series,omitempty"`
	TopItems   []TopItemsData   `json:"top_items,omitempty"`
	Tables     []TableData      `json:"tables,omitempty"`
	RawData    []map[string]any `json:"raw_data,omitempty"`
	Comparison *ComparisonData  `json:"comparison,omitempty"`

	DatasetsMeta  []DatasetMeta `json:"datasets_meta"`
	AvailableRefs []string      `json:"available_refs"`
}

// HasRef reports whether ref is resolvable against this payload.
func (p *DataPayload) HasRef(ref string) bool {
	for _, r := range p.AvailableRefs {
		if r == ref {
			return true
		}
	}
	return false
}
