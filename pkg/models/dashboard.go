package models

import (
	"encoding/json"
	"time"
)

// Component type discriminators used in the dashboard spec wire format.
const (
	ComponentKPICard       = "kpi_card"
	ComponentLineChart     = "line_chart"
	ComponentBarChart      = "bar_chart"
	ComponentAreaChart     = "area_chart"
	ComponentTable         = "table"
	ComponentComparisonBar = "comparison_bar"
	ComponentComparisonKPI = "comparison_kpi"
)

// Narrative block kinds.
const (
	NarrativeHeadline = "headline"
	NarrativeInsight  = "insight"
	NarrativeCallout  = "callout"
	NarrativeSummary  = "summary"
)

// Value formats for KPI cards.
const (
	FormatCurrency = "currency"
	FormatNumber   = "number"
	FormatPercent  = "percent"
)

// KPICardConfig renders a single KPI value resolved through value_ref.
type KPICardConfig struct {
	Type     string `json:"type"` // kpi_card
	Label    string `json:"label"`
	ValueRef string `json:"value_ref"`
	Format   string `json:"format"`
	DeltaRef string `json:"delta_ref,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// ChartConfig renders a dataset as a line, bar, or area chart.
type ChartConfig struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	DatasetRef string `json:"dataset_ref"`
	XAxis      string `json:"x_axis"`
	YAxis      string `json:"y_axis"`
	Color      string `json:"color,omitempty"`
}

// TableConfig renders tabular rows resolved through dataset_ref.
type TableConfig struct {
	Type       string   `json:"type"` // table
	Title      string   `json:"title"`
	DatasetRef string   `json:"dataset_ref"`
	Columns    []string `json:"columns"`
	MaxRows    int      `json:"max_rows"`
}

// ComparisonChartConfig renders a two-period comparison.
type ComparisonChartConfig struct {
	Type          string   `json:"type"` // comparison_bar | comparison_kpi
	Title         string   `json:"title"`
	CurrentLabel  string   `json:"current_label"`
	PreviousLabel string   `json:"previous_label"`
	Metrics       []string `json:"metrics"`
	DatasetRef    string   `json:"dataset_ref"` // always "comparison"
}

// NarrativeConfig is one narrative text block.
type NarrativeConfig struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
}

// ChartSlot is a chart, table, or comparison occupying a chart position.
// Exactly one of the pointers is set. On the wire the slot flattens to the
// inner config object, discriminated by its "type" field.
type ChartSlot struct {
	Chart      *ChartConfig
	Table      *TableConfig
	Comparison *ComparisonChartConfig
}

// MarshalJSON flattens the slot to its inner config.
func (s ChartSlot) MarshalJSON() ([]byte, error) {
	switch {
	case s.Chart != nil:
		return json.Marshal(s.Chart)
	case s.Table != nil:
		return json.Marshal(s.Table)
	case s.Comparison != nil:
		return json.Marshal(s.Comparison)
	}
	return []byte("null"), nil
}

// UnmarshalJSON routes on the "type" discriminator.
func (s *ChartSlot) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Type {
	case ComponentTable:
		s.Table = &TableConfig{}
		return json.Unmarshal(data, s.Table)
	case ComponentComparisonBar, ComponentComparisonKPI:
		s.Comparison = &ComparisonChartConfig{}
		return json.Unmarshal(data, s.Comparison)
	default:
		s.Chart = &ChartConfig{}
		return json.Unmarshal(data, s.Chart)
	}
}

// DatasetRef returns the slot's dataset reference regardless of variant.
func (s ChartSlot) DatasetRef() string {
	switch {
	case s.Chart != nil:
		return s.Chart.DatasetRef
	case s.Table != nil:
		return s.Table.DatasetRef
	case s.Comparison != nil:
		return s.Comparison.DatasetRef
	}
	return ""
}

// SlotConfig groups the dashboard's component slots.
type SlotConfig struct {
	Filters   []string          `json:"filters,omitempty"`
	Series    []KPICardConfig   `json:"series"`
	Charts    []ChartSlot       `json:"charts"`
	Narrative []NarrativeConfig `json:"narrative"`
}

// DashboardSpec is the composer's output: a declarative dashboard whose refs
// all resolve against the accompanying DataPayload.
type DashboardSpec struct {
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Conclusion  string     `json:"conclusion,omitempty"`
	Slots       SlotConfig `json:"slots"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}
